package pgcrypt

import (
	"crypto/aes"

	"golang.org/x/crypto/blowfish"
)

// CipherAlgo identifies a supported block cipher.
// Use these constants in struct tags: `store.encrypt:"aes"`
type CipherAlgo string

const (
	// CipherBlowfish uses Blowfish in CBC mode (64-bit blocks). Keys may be
	// 1 to 56 bytes and are used as-is.
	CipherBlowfish CipherAlgo = "bf"

	// CipherAES uses AES in CBC mode (128-bit blocks). The key is
	// zero-padded to 16 or 32 bytes, selecting AES-128 or AES-256.
	CipherAES CipherAlgo = "aes"
)

// validCipherAlgos contains all valid cipher algorithms for tag validation.
var validCipherAlgos = map[CipherAlgo]bool{
	CipherBlowfish: true,
	CipherAES:      true,
}

// IsValidCipherAlgo returns true if the algorithm is a known cipher.
func IsValidCipherAlgo(algo CipherAlgo) bool {
	return validCipherAlgos[algo]
}

// BlockSize returns the block size in bytes for the algorithm.
// Unknown algorithms report zero.
func (a CipherAlgo) BlockSize() int {
	switch a {
	case CipherBlowfish:
		return blowfish.BlockSize
	case CipherAES:
		return aes.BlockSize
	}
	return 0
}
