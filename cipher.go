package pgcrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"golang.org/x/crypto/blowfish"
)

// BlockCipher wraps a block cipher in CBC mode with an all-zero IV, matching
// the raw output of pgcrypto's encrypt()/decrypt() SQL functions byte for
// byte.
//
// Encryption is deterministic: no nonce, no random IV. Identical
// (key, cipher, plaintext) triples always produce identical ciphertext.
// That is a compatibility requirement of the legacy scheme, not an
// oversight to fix.
type BlockCipher struct {
	algo  CipherAlgo
	block cipher.Block
}

// NewBlockCipher builds a CBC cipher for the given algorithm and key.
//
// Blowfish accepts keys of 1 to 56 bytes, used as-is. AES keys are
// zero-padded to 16 bytes when 16 bytes or shorter and to 32 bytes when 32
// bytes or shorter, mirroring pgcrypto's key handling; longer keys fail.
// Unsupported keys and unknown algorithms fail with ErrInvalidKey.
func NewBlockCipher(algo CipherAlgo, key []byte) (*BlockCipher, error) {
	switch algo {
	case CipherBlowfish:
		block, err := blowfish.NewCipher(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		return &BlockCipher{algo: algo, block: block}, nil
	case CipherAES:
		padded, err := padAESKey(key)
		if err != nil {
			return nil, err
		}
		block, err := aes.NewCipher(padded)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		return &BlockCipher{algo: algo, block: block}, nil
	default:
		return nil, fmt.Errorf("%w: unknown cipher %q", ErrInvalidKey, algo)
	}
}

// padAESKey zero-pads a key to the next supported AES key length.
// Short keys select AES-128, keys between 17 and 32 bytes AES-256.
func padAESKey(key []byte) ([]byte, error) {
	var size int
	switch {
	case len(key) <= 16:
		size = 16
	case len(key) <= 32:
		size = 32
	default:
		return nil, fmt.Errorf("%w: AES key longer than 32 bytes", ErrInvalidKey)
	}
	padded := make([]byte, size)
	copy(padded, key)
	return padded, nil
}

// Algo returns the cipher algorithm.
func (c *BlockCipher) Algo() CipherAlgo {
	return c.algo
}

// BlockSize returns the cipher block size in bytes.
func (c *BlockCipher) BlockSize() int {
	return c.block.BlockSize()
}

// Encrypt encrypts padded plaintext in CBC mode with a zero IV. The output
// has the same length as the input, which must be a multiple of the block
// size.
func (c *BlockCipher) Encrypt(padded []byte) ([]byte, error) {
	if err := c.checkAligned(len(padded)); err != nil {
		return nil, err
	}
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(c.block, make([]byte, c.block.BlockSize())).CryptBlocks(out, padded)
	return out, nil
}

// Decrypt decrypts ciphertext in CBC mode with a zero IV. The output has the
// same length as the input and still carries padding; use Unpad to recover
// the original plaintext.
func (c *BlockCipher) Decrypt(ciphertext []byte) ([]byte, error) {
	if err := c.checkAligned(len(ciphertext)); err != nil {
		return nil, err
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(c.block, make([]byte, c.block.BlockSize())).CryptBlocks(out, ciphertext)
	return out, nil
}

func (c *BlockCipher) checkAligned(n int) error {
	if bs := c.block.BlockSize(); n%bs != 0 {
		return fmt.Errorf("%w: length %d is not a multiple of %d", ErrBlockAlignment, n, bs)
	}
	return nil
}
