package pgcrypt

import (
	"errors"
	"fmt"
)

// Sentinel errors for programmatic error handling.
// Use errors.Is() to check for these error types.
var (
	// ErrPadding indicates a malformed pad length byte during unpadding.
	ErrPadding = errors.New("invalid padding")

	// ErrBlockAlignment indicates input whose length is not a multiple of
	// the cipher block size.
	ErrBlockAlignment = errors.New("input not block aligned")

	// ErrInvalidKey indicates a key length or cipher/key combination the
	// chosen cipher does not support.
	ErrInvalidKey = errors.New("invalid key")

	// ErrArmorFormat indicates structurally malformed armored text.
	ErrArmorFormat = errors.New("corrupt ascii armor")

	// ErrArmorChecksum indicates a CRC24 mismatch in armored text.
	ErrArmorChecksum = errors.New("armor checksum mismatch")

	// ErrDecode indicates decrypted bytes that are not valid text where a
	// text result is required. Decrypting with the wrong key typically
	// surfaces here, since the legacy scheme is unauthenticated.
	ErrDecode = errors.New("decrypted value is not decodable")

	// ErrMissingField indicates a required encrypted field was not
	// registered with the processor.
	ErrMissingField = errors.New("missing field")

	// ErrInvalidTag indicates a struct tag has an invalid format or value.
	ErrInvalidTag = errors.New("invalid tag")

	// ErrEncrypt indicates encryption of a field failed.
	ErrEncrypt = errors.New("encrypt failed")

	// ErrDecrypt indicates decryption of a field failed.
	ErrDecrypt = errors.New("decrypt failed")
)

// ConfigError represents a processor configuration error.
// It wraps a sentinel error with additional context about the field and cipher.
type ConfigError struct {
	Err       error  // Underlying sentinel error (ErrMissingField, etc.)
	Field     string // Field name that triggered the error
	Algorithm string // Cipher that was missing/invalid
}

func (e *ConfigError) Error() string {
	if e.Field != "" && e.Algorithm != "" {
		return fmt.Sprintf("%s for cipher %q (field %s)", e.Err.Error(), e.Algorithm, e.Field)
	}
	if e.Algorithm != "" {
		return fmt.Sprintf("%s for cipher %q", e.Err.Error(), e.Algorithm)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s (field %s)", e.Err.Error(), e.Field)
	}
	return e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// TransformError represents an error during field transformation.
// It wraps a sentinel error with context about which field and operation failed.
type TransformError struct {
	Err       error  // Underlying sentinel error (ErrEncrypt, ErrDecrypt)
	Field     string // Field name that failed
	Operation string // Operation that failed (encrypt, decrypt)
	Cause     error  // Original error from the codec core
}

func (e *TransformError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s field %s: %v", e.Operation, e.Field, e.Cause)
	}
	return fmt.Sprintf("%s field %s", e.Operation, e.Field)
}

func (e *TransformError) Unwrap() error {
	return e.Err
}

// newConfigError creates a ConfigError for missing handler scenarios.
func newConfigError(sentinel error, algorithm, field string) error {
	return &ConfigError{
		Err:       sentinel,
		Algorithm: algorithm,
		Field:     field,
	}
}

// newTransformError creates a TransformError for field transformation failures.
func newTransformError(sentinel error, operation, field string, cause error) error {
	return &TransformError{
		Err:       sentinel,
		Field:     field,
		Operation: operation,
		Cause:     cause,
	}
}
