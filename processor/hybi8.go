// File: wsconn/processor/hybi8.go
// hybi8 implements draft-ietf-hybi-thewebsocketprotocol-08: identical frame
// layout to the final RFC (reused via hybi13's codec), but the opening
// handshake still used Sec-WebSocket-Origin rather than the later bare
// Origin header, and advertises version "8".
package processor

import (
	"fmt"
	"net/http"
)

type hybi8 struct {
	codec *hybi13
}

func newHybi8() *hybi8 { return &hybi8{codec: newHybi13()} }

func (p *hybi8) Version() int { return 8 }

func (p *hybi8) ValidateHandshakeRequest(req *http.Request) (http.Header, error) {
	if req.Header.Get("Sec-WebSocket-Origin") == "" && req.Header.Get("Origin") == "" {
		return nil, fmt.Errorf("%w: missing Sec-WebSocket-Origin", errInvalidUpgrade)
	}
	return p.codec.ValidateHandshakeRequest(req)
}

func (p *hybi8) Decode(buf []byte) ([]*Frame, int, error) { return p.codec.Decode(buf) }
func (p *hybi8) Encode(f *Frame, mask bool) ([]byte, error) { return p.codec.Encode(f, mask) }
