package otp

import (
	"fmt"
	"io"
)

// CodeLength is the number of decimal digits in a reset code
const CodeLength = 6

// Bytes at or above this value are thrown away so that every digit has the
// same odds. 250 is the largest multiple of 10 that fits in a byte.
const rejectAbove = 250

// GenerateCode draws CodeLength independent uniform digits from r. The result
// is a fixed width string, so "000123" stays as is.
func GenerateCode(r io.Reader) (string, error) {
	code := make([]byte, 0, CodeLength)
	buf := make([]byte, CodeLength)

	for len(code) < CodeLength {
		n := CodeLength - len(code)
		if _, err := io.ReadFull(r, buf[:n]); err != nil {
			return "", fmt.Errorf("failed to read random bytes, %w", err)
		}

		for _, b := range buf[:n] {
			if b >= rejectAbove {
				continue
			}

			code = append(code, '0'+b%10)
		}
	}

	return string(code), nil
}

// ValidCode reports whether c has the shape of a reset code
func ValidCode(c string) bool {
	if len(c) != CodeLength {
		return false
	}

	for i := 0; i < len(c); i++ {
		if c[i] < '0' || c[i] > '9' {
			return false
		}
	}

	return true
}
