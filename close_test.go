// File: wsconn/close_test.go
package wsconn_test

import (
	"sync"
	"testing"

	"github.com/momentics/wsconn"
	"github.com/momentics/wsconn/wsconntest"
)

func TestLocalCloseCompletesHandshakeAndFiresOnClose(t *testing.T) {
	serverSide, clientSide := wsconntest.NewPipe()

	var serverOpen, clientOpen, clientClosed sync.WaitGroup
	serverOpen.Add(1)
	clientOpen.Add(1)
	clientClosed.Add(1)

	server := wsconn.New(wsconn.RoleServer, serverSide, &wsconn.Handler{
		OnOpen: func(c *wsconn.Connection) { serverOpen.Done() },
	})
	client := wsconn.New(wsconn.RoleClient, clientSide, &wsconn.Handler{
		OnOpen:  func(c *wsconn.Connection) { clientOpen.Done() },
		OnClose: func(c *wsconn.Connection) { clientClosed.Done() },
	})

	go server.Start()
	go client.Start()

	waitWithTimeout(t, &serverOpen, "server on_open")
	waitWithTimeout(t, &clientOpen, "client on_open")

	if err := client.TryClose(wsconn.CloseNormal, "bye"); err != nil {
		t.Fatalf("TryClose: %v", err)
	}
	if client.State() != wsconn.StateClosing {
		t.Fatalf("client state after TryClose = %s, want CLOSING", client.State())
	}

	waitWithTimeout(t, &clientClosed, "client on_close")

	if stats := client.Stats(); !stats.ClosedByMe {
		t.Errorf("expected ClosedByMe=true, got %+v", stats)
	}
}

func TestCloseTwiceReturnsErrClosing(t *testing.T) {
	serverSide, clientSide := wsconntest.NewPipe()

	var clientOpen sync.WaitGroup
	clientOpen.Add(1)

	server := wsconn.New(wsconn.RoleServer, serverSide, &wsconn.Handler{})
	client := wsconn.New(wsconn.RoleClient, clientSide, &wsconn.Handler{
		OnOpen: func(c *wsconn.Connection) { clientOpen.Done() },
	})

	go server.Start()
	go client.Start()
	waitWithTimeout(t, &clientOpen, "client on_open")

	if err := client.TryClose(wsconn.CloseNormal, ""); err != nil {
		t.Fatalf("first TryClose: %v", err)
	}
	if err := client.TryClose(wsconn.CloseNormal, ""); err != wsconn.ErrClosing {
		t.Fatalf("second TryClose = %v, want ErrClosing", err)
	}
}
