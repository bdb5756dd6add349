package sms

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// DefaultCodeDigits is the length of generated verification codes.
const DefaultCodeDigits = 6

// GenerateCode returns a uniformly random numeric code of the given length
// (DefaultCodeDigits when digits <= 0). Leading zeros are kept.
func GenerateCode(digits int) (string, error) {
	if digits <= 0 {
		digits = DefaultCodeDigits
	}
	var b strings.Builder
	b.Grow(digits)
	ten := big.NewInt(10)
	for i := 0; i < digits; i++ {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + d.Int64()))
	}
	return b.String(), nil
}
