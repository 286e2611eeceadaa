// Package cipher implements the transport cipher used by eAmuse cabinets.
//
// Every encrypted payload travels with a compact token in the x-eamuse-info
// header, shaped "1-xxxxxxxx-yyyy" (scheme marker, hex unix timestamp, hex
// 16-bit random). The RC4 key is derived by hashing the 6 raw token payload
// bytes together with a fixed shared secret, so a stateless peer can derive
// the identical key from headers alone.
package cipher

import (
	"crypto/md5"
	"crypto/rc4"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/573dev/gfdm-server/internal/common"
)

// TokenLength is the exact length of a well-formed x-eamuse-info value.
const TokenLength = 19

// ErrMalformedToken reports an x-eamuse-info value that does not parse.
// A malformed token must fail the request; it is never downgraded to
// "treat the payload as plaintext".
var ErrMalformedToken = errors.New("malformed eamuse token")

// secret is the fixed 26-byte key material appended to the token payload
// before hashing. It is baked into the cabinet firmware.
var secret = []byte{
	0x69, 0xd7, 0x46, 0x27, 0xd9, 0x85, 0xee, 0x21, 0x87, 0x16,
	0x15, 0x70, 0xd0, 0x8d, 0x93, 0xb1, 0x24, 0x55, 0x03, 0x5b,
	0x6d, 0xf0, 0xd8, 0x20, 0x5d, 0xf5,
}

// ParseToken validates a token of the form "1-xxxxxxxx-yyyy" and returns
// the 6 raw bytes of its hex payload.
func ParseToken(token string) ([]byte, error) {
	if len(token) != TokenLength {
		return nil, fmt.Errorf("%w: length %d", ErrMalformedToken, len(token))
	}
	if token[0] != '1' || token[1] != '-' || token[10] != '-' {
		return nil, fmt.Errorf("%w: %q", ErrMalformedToken, token)
	}
	payload := strings.ReplaceAll(token[2:], "-", "")
	raw, err := hex.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: non-hex payload %q", ErrMalformedToken, payload)
	}
	return raw, nil
}

// MintToken produces a fresh token for an outbound response.
func MintToken() (string, error) {
	r, err := common.MakeRandUint16()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("1-%08x-%04x", time.Now().Unix(), r), nil
}

// DeriveKey turns a token into the 16-byte RC4 key:
// MD5(tokenPayload || secret).
func DeriveKey(token string) ([]byte, error) {
	payload, err := ParseToken(token)
	if err != nil {
		return nil, err
	}
	sum := md5.Sum(append(payload, secret...))
	return sum[:], nil
}

// Cipher is a single-use RC4 stream keyed from one token. RC4 is a keystream
// XOR, so Encrypt and Decrypt are the same transform; a Cipher must not be
// reused across payloads.
type Cipher struct {
	stream *rc4.Cipher
}

// New builds a Cipher for the given token.
func New(token string) (*Cipher, error) {
	key, err := DeriveKey(token)
	if err != nil {
		return nil, err
	}
	stream, err := rc4.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("rc4 init: %w", err)
	}
	return &Cipher{stream: stream}, nil
}

// Crypt applies the keystream to data and returns the result. The input
// slice is left untouched.
func (c *Cipher) Crypt(data []byte) []byte {
	out := make([]byte, len(data))
	c.stream.XORKeyStream(out, data)
	return out
}
