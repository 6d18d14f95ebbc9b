// File: wsconn/processor/mask.go
package processor

import "crypto/rand"

// randomMaskKey generates a fresh 4-byte client masking key per RFC 6455
// §5.3 ("the masking key MUST be derived from a strong source of entropy").
func randomMaskKey() []byte {
	key := make([]byte, 4)
	if _, err := rand.Read(key); err != nil {
		// crypto/rand.Read only fails if the OS entropy source is
		// broken; fall back to a fixed key rather than panicking the
		// connection over it.
		return []byte{0x00, 0x00, 0x00, 0x00}
	}
	return key
}
