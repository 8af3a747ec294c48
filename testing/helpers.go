// Package testing provides test utilities for pgcrypt.
package testing

import (
	"github.com/pgcrypt/pgcrypt"
)

// TestKey returns the key used by the reference pgcrypto test vectors.
func TestKey() []byte {
	return []byte("pass")
}

// AESField returns an AES field descriptor configured for testing.
func AESField() *pgcrypt.Field {
	return pgcrypt.NewField(pgcrypt.FieldConfig{Cipher: pgcrypt.CipherAES, Key: TestKey()})
}

// BlowfishField returns a Blowfish field descriptor configured for testing.
func BlowfishField() *pgcrypt.Field {
	return pgcrypt.NewField(pgcrypt.FieldConfig{Cipher: pgcrypt.CipherBlowfish, Key: TestKey()})
}

// SimpleRecord is a test type with no encryption tags.
type SimpleRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Clone implements Cloner[SimpleRecord].
func (r SimpleRecord) Clone() SimpleRecord { return r }

// Employee is a test type mirroring a payroll row with protected columns.
type Employee struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	SSN    string `json:"ssn" store.encrypt:"aes" load.decrypt:"aes"`
	Email  string `json:"email" store.encrypt:"bf" load.decrypt:"bf"`
	Salary string `json:"salary" store.encrypt:"aes" load.decrypt:"aes"`
}

// Clone implements Cloner[Employee].
func (e Employee) Clone() Employee { return e }
