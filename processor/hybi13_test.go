package processor_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/momentics/wsconn/processor"
)

func TestHybi13EncodeDecodeRoundTrip(t *testing.T) {
	p, err := processor.ByVersion(13)
	if err != nil {
		t.Fatal(err)
	}
	payload := []byte("Hello")
	frame := &processor.Frame{
		IsFinal:    true,
		Opcode:     processor.OpcodeText,
		Payload:    payload,
		PayloadLen: int64(len(payload)),
	}
	data, err := p.Encode(frame, false)
	if err != nil {
		t.Fatal(err)
	}
	got, n, err := p.Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(data) {
		t.Fatalf("consumed %d, want %d", n, len(data))
	}
	if len(got) != 1 {
		t.Fatalf("got %d frames, want 1", len(got))
	}
	if !bytes.Equal(got[0].Payload, payload) {
		t.Errorf("payload mismatch: got %q want %q", got[0].Payload, payload)
	}
}

func TestHybi13DecodeIncompleteFrame(t *testing.T) {
	p, _ := processor.ByVersion(13)
	full, _ := p.Encode(&processor.Frame{IsFinal: true, Opcode: processor.OpcodeText, Payload: []byte("abcdef"), PayloadLen: 6}, false)

	frames, n, err := p.Decode(full[:len(full)-2])
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) != 0 {
		t.Fatalf("expected no complete frames, got %d", len(frames))
	}
	if n != 0 {
		t.Fatalf("expected 0 bytes consumed, got %d", n)
	}
}

func TestHybi13MaskedClientFrame(t *testing.T) {
	p, _ := processor.ByVersion(13)
	payload := []byte("masked-payload")
	data, err := p.Encode(&processor.Frame{IsFinal: true, Opcode: processor.OpcodeBinary, Payload: payload, PayloadLen: int64(len(payload))}, true)
	if err != nil {
		t.Fatal(err)
	}
	if data[1]&processor.MaskBit == 0 {
		t.Fatal("expected mask bit set")
	}
	got, _, err := p.Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if !got[0].Masked {
		t.Error("expected decoded frame to report Masked=true")
	}
	if !bytes.Equal(got[0].Payload, payload) {
		t.Errorf("unmask roundtrip mismatch: got %q want %q", got[0].Payload, payload)
	}
}

func TestHybi13ValidateHandshake_ComputesKnownAccept(t *testing.T) {
	p, _ := processor.ByVersion(13)
	req := httptest.NewRequest(http.MethodGet, "/chat", nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
	req.Header.Set("Sec-WebSocket-Version", "13")

	hdr, err := p.ValidateHandshakeRequest(req)
	if err != nil {
		t.Fatal(err)
	}
	const want = "s3pPLMBiTxaQ9kYGzzhZRbK+xOo="
	if got := hdr.Get("Sec-WebSocket-Accept"); got != want {
		t.Errorf("accept key = %q, want %q", got, want)
	}
}

func TestHybi13ValidateHandshake_RejectsMissingKey(t *testing.T) {
	p, _ := processor.ByVersion(13)
	req := httptest.NewRequest(http.MethodGet, "/chat", nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	if _, err := p.ValidateHandshakeRequest(req); err == nil {
		t.Fatal("expected error for missing Sec-WebSocket-Key")
	}
}
