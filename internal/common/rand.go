package common

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const hexDigits = "0123456789ABCDEF"

// MakeRandHexString returns a random string of n uppercase hexadecimal
// characters, suitable for reference-id allocation.
func MakeRandHexString(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("rand read: %w", err)
	}
	for i, b := range buf {
		buf[i] = hexDigits[int(b)%len(hexDigits)]
	}
	return string(buf), nil
}

// MakeRandIntInRange returns a uniformly distributed random integer in
// [min, max] inclusive.
func MakeRandIntInRange(min, max int64) (int64, error) {
	if max < min {
		return 0, fmt.Errorf("invalid range [%d, %d]", min, max)
	}
	n, err := rand.Int(rand.Reader, big.NewInt(max-min+1))
	if err != nil {
		return 0, fmt.Errorf("rand int: %w", err)
	}
	return min + n.Int64(), nil
}

// MakeRandUint16 returns a random 16-bit value.
func MakeRandUint16() (uint16, error) {
	n, err := MakeRandIntInRange(0, 0xffff)
	if err != nil {
		return 0, err
	}
	return uint16(n), nil
}
