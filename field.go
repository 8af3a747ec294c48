package pgcrypt

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"
)

// Process-wide defaults for fields constructed without an explicit cipher or
// key, the analog of a deployment-wide secret key setting.
var (
	defaultsMu    sync.RWMutex
	defaultKey    []byte
	defaultCipher = CipherAES
)

// SetDefaultKey sets the process-wide key used by fields whose config leaves
// Key nil. The key is copied; the caller keeps ownership of the slice.
func SetDefaultKey(key []byte) {
	defaultsMu.Lock()
	defer defaultsMu.Unlock()
	if key == nil {
		defaultKey = nil
		return
	}
	defaultKey = append([]byte(nil), key...)
}

// SetDefaultCipher sets the process-wide cipher used by fields whose config
// leaves Cipher empty. The initial default is CipherAES.
func SetDefaultCipher(algo CipherAlgo) {
	defaultsMu.Lock()
	defer defaultsMu.Unlock()
	defaultCipher = algo
}

func currentDefaults() (CipherAlgo, []byte) {
	defaultsMu.RLock()
	defer defaultsMu.RUnlock()
	return defaultCipher, defaultKey
}

// FieldConfig configures an encrypted column.
type FieldConfig struct {
	// Cipher selects the block cipher. Empty means the process default.
	Cipher CipherAlgo

	// Key is the symmetric key. Nil means the process default key. Key
	// material is treated as an opaque byte buffer; storage and zeroing
	// remain the caller's responsibility.
	Key []byte

	// Unversioned omits the Version/Cipher header block from stored
	// values, producing bare armor.
	Unversioned bool
}

// Field is an encrypted column descriptor. It owns the full storage
// pipeline: pad, CBC-encrypt, armor, and wrap on the way to storage; unwrap,
// dearmor, decrypt, and unpad on the way back.
//
// The block cipher is built lazily, so an unsupported cipher/key combination
// surfaces as ErrInvalidKey from the first Encrypt or Decrypt rather than
// from construction. Fields are safe for concurrent use; every call only
// reads the resolved configuration.
type Field struct {
	cfg  FieldConfig
	once sync.Once
	algo CipherAlgo
	key  []byte
	bc   *BlockCipher
	err  error
}

// NewField creates a field descriptor from explicit configuration. It never
// fails; configuration errors are reported at first use.
func NewField(cfg FieldConfig) *Field {
	return &Field{cfg: cfg}
}

// init resolves defaults and builds the block cipher once.
func (f *Field) init() error {
	f.once.Do(func() {
		defAlgo, defKey := currentDefaults()
		f.algo = f.cfg.Cipher
		if f.algo == "" {
			f.algo = defAlgo
		}
		f.key = f.cfg.Key
		if f.key == nil {
			f.key = defKey
		}
		if len(f.key) == 0 {
			f.err = fmt.Errorf("%w: no key configured", ErrInvalidKey)
			return
		}
		f.bc, f.err = NewBlockCipher(f.algo, f.key)
	})
	return f.err
}

// Algo returns the cipher the field encrypts with, after defaults resolve.
func (f *Field) Algo() CipherAlgo {
	if f.cfg.Cipher != "" {
		return f.cfg.Cipher
	}
	algo, _ := currentDefaults()
	return algo
}

// BlockSize returns the block size of the field's cipher in bytes.
func (f *Field) BlockSize() int {
	return f.Algo().BlockSize()
}

// Encrypt runs plaintext through the storage pipeline and returns the
// versioned envelope text, the only form ever persisted. Empty plaintext is
// returned as the empty string: the armor codec treats empty input as
// malformed, so blank column values are never armored.
func (f *Field) Encrypt(plaintext []byte) (string, error) {
	if len(plaintext) == 0 {
		return "", nil
	}
	if err := f.init(); err != nil {
		return "", err
	}
	ciphertext, err := f.bc.Encrypt(Pad(plaintext, f.bc.BlockSize()))
	if err != nil {
		return "", err
	}
	armored := Armor(ciphertext)
	if f.cfg.Unversioned {
		return armored, nil
	}
	return Wrap(f.bc.Algo(), Version, armored), nil
}

// Decrypt reverses Encrypt. When the envelope header names a known cipher,
// that cipher is used with the field's key; otherwise the field's configured
// cipher applies, so values written under an older configuration still
// decrypt. Empty input passes through as nil.
func (f *Field) Decrypt(text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if err := f.init(); err != nil {
		return nil, err
	}

	header, body := Unwrap(text)
	bc := f.bc
	if header.Cipher != "" && header.Cipher != bc.Algo() {
		alt, err := NewBlockCipher(header.Cipher, f.key)
		if err != nil {
			return nil, err
		}
		bc = alt
	}

	ciphertext, err := Dearmor(body)
	if err != nil {
		return nil, err
	}
	padded, err := bc.Decrypt(ciphertext)
	if err != nil {
		return nil, err
	}
	return Unpad(padded, bc.BlockSize())
}

// DecryptText decrypts and interprets the result as UTF-8 text. CBC with a
// zero IV carries no authentication, so decrypting with the wrong key does
// not fail at the cipher layer; it surfaces here as ErrDecode when the
// resulting bytes are not valid text.
func (f *Field) DecryptText(text string) (string, error) {
	raw, err := f.Decrypt(text)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("%w: not valid UTF-8", ErrDecode)
	}
	return string(raw), nil
}
