// File: wsconn/connection_test.go
package wsconn_test

import (
	"sync"
	"testing"
	"time"

	"github.com/momentics/wsconn"
	"github.com/momentics/wsconn/wsconntest"
)

func TestHandshakeAndEchoRoundTrip(t *testing.T) {
	serverSide, clientSide := wsconntest.NewPipe()

	var serverGotOpen, clientGotOpen sync.WaitGroup
	serverGotOpen.Add(1)
	clientGotOpen.Add(1)

	var mu sync.Mutex
	var serverReceived *wsconn.Message
	var gotMsg sync.WaitGroup
	gotMsg.Add(1)

	serverHandler := &wsconn.Handler{
		OnOpen: func(c *wsconn.Connection) { serverGotOpen.Done() },
		OnMessage: func(c *wsconn.Connection, m *wsconn.Message) {
			mu.Lock()
			serverReceived = &wsconn.Message{Opcode: m.Opcode, Payload: append([]byte(nil), m.Payload...)}
			mu.Unlock()
			gotMsg.Done()
		},
	}
	clientHandler := &wsconn.Handler{
		OnOpen: func(c *wsconn.Connection) { clientGotOpen.Done() },
	}

	server := wsconn.New(wsconn.RoleServer, serverSide, serverHandler)
	client := wsconn.New(wsconn.RoleClient, clientSide, clientHandler)

	errCh := make(chan error, 2)
	go func() { errCh <- server.Start() }()
	go func() { errCh <- client.Start() }()

	waitWithTimeout(t, &serverGotOpen, "server on_open")
	waitWithTimeout(t, &clientGotOpen, "client on_open")

	if server.State() != wsconn.StateOpen {
		t.Fatalf("server state = %s, want OPEN", server.State())
	}
	if client.State() != wsconn.StateOpen {
		t.Fatalf("client state = %s, want OPEN", client.State())
	}

	client.Send(wsconn.OpcodeText, []byte("hello"))
	waitWithTimeout(t, &gotMsg, "server on_message")

	mu.Lock()
	defer mu.Unlock()
	if serverReceived == nil || string(serverReceived.Payload) != "hello" {
		t.Fatalf("server received %+v, want payload \"hello\"", serverReceived)
	}
}

func waitWithTimeout(t *testing.T, wg *sync.WaitGroup, what string) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}
