package pgcrypt

import "fmt"

// Pad appends PKCS-style padding so len(data) is a multiple of blockSize.
// The appended bytes each hold the pad count. Input that is already aligned
// gains a full extra block, matching pgcrypto: the pad count must always be
// recoverable from the last byte, so at least one byte is always added.
func Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+n)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

// Unpad removes the padding appended by Pad. It fails with ErrPadding when
// the pad count read from the last byte is zero, exceeds blockSize, or
// exceeds the input length.
//
// The removed bytes are not checked against the pad count. pgcrypto accepts
// malformed padding with a plausible length byte and returns wrong plaintext
// instead of an error; stricter validation here would reject values the
// extension decrypts.
func Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrPadding)
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, fmt.Errorf("%w: pad count %d out of range", ErrPadding, n)
	}
	return data[:len(data)-n], nil
}
