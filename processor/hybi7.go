// File: wsconn/processor/hybi7.go
// hybi7 implements draft-ietf-hybi-thewebsocketprotocol-07. Frame layout is
// shared with hybi13/hybi8; draft 7 predates close-code negotiation being
// mandatory, so validation is looser about the close frame's payload
// (handled uniformly by the core's control-frame path, not here).
package processor

import "net/http"

type hybi7 struct {
	codec *hybi13
}

func newHybi7() *hybi7 { return &hybi7{codec: newHybi13()} }

func (p *hybi7) Version() int { return 7 }

func (p *hybi7) ValidateHandshakeRequest(req *http.Request) (http.Header, error) {
	return p.codec.ValidateHandshakeRequest(req)
}

func (p *hybi7) Decode(buf []byte) ([]*Frame, int, error)   { return p.codec.Decode(buf) }
func (p *hybi7) Encode(f *Frame, mask bool) ([]byte, error) { return p.codec.Encode(f, mask) }
