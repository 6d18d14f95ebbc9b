package processor_test

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/momentics/wsconn/processor"
)

func TestHixie76EncodeDecodeTextFrame(t *testing.T) {
	p, err := processor.ByVersion(0)
	if err != nil {
		t.Fatal(err)
	}
	payload := []byte("Hello")
	data, err := p.Encode(&processor.Frame{Opcode: processor.OpcodeText, Payload: payload}, false)
	if err != nil {
		t.Fatal(err)
	}
	if data[0] != 0x00 || data[len(data)-1] != 0xFF {
		t.Fatalf("unexpected frame delimiters: % x", data)
	}
	frames, n, err := p.Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(data) || len(frames) != 1 {
		t.Fatalf("decode mismatch: frames=%d consumed=%d", len(frames), n)
	}
	if !bytes.Equal(frames[0].Payload, payload) {
		t.Errorf("payload mismatch: got %q want %q", frames[0].Payload, payload)
	}
}

func TestHixie76CloseSequence(t *testing.T) {
	p, _ := processor.ByVersion(0)
	data, err := p.Encode(&processor.Frame{Opcode: processor.OpcodeClose}, false)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, []byte{0xFF, 0x00}) {
		t.Fatalf("unexpected close sequence: % x", data)
	}
	frames, _, err := p.Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) != 1 || frames[0].Opcode != processor.OpcodeClose {
		t.Fatalf("expected a single close frame, got %+v", frames)
	}
}

func TestHixie76Handshake_MD5Challenge(t *testing.T) {
	p, _ := processor.ByVersion(0)
	req := httptest.NewRequest(http.MethodGet, "/demo", nil)
	req.Header.Set("Sec-WebSocket-Key1", "4 @1  46546xW%0l 1 5")
	req.Header.Set("Sec-WebSocket-Key2", "12998 5 Y3 1  .P00")
	req.Body = io.NopCloser(strings.NewReader("^n:ds[4U"))

	hdr, err := p.ValidateHandshakeRequest(req)
	if err != nil {
		t.Fatal(err)
	}
	// Known-answer test from the Hixie-76 draft examples.
	const want = "8jKS'y:G*Co,Wxa-"
	if got := hdr.Get("X-Hixie76-Response-Body"); got != want {
		t.Errorf("challenge response = %q, want %q", got, want)
	}
}
