// Package pgcrypt provides transparent column-level encryption compatible
// with the PostgreSQL pgcrypto extension's raw encrypt()/decrypt() scheme.
//
// Values are encrypted before storage and decrypted on read. The on-disk
// form is a versioned ASCII-armor envelope, so binary ciphertext is always
// stored and transported as text, and every stored value records the cipher
// and library version that produced it.
//
// # Codec core
//
// The core is four small, purely functional layers:
//
//   - Pad / Unpad: PKCS-style padding to the cipher block size. Aligned
//     input gains a full extra block, as pgcrypto requires.
//   - BlockCipher: Blowfish or AES in CBC mode with an all-zero IV,
//     bit-exact with pgcrypto's encrypt(data, key, 'bf'|'aes').
//   - Armor / Dearmor: base64 body wrapped at 76 characters with a CRC24
//     checksum line and end marker.
//   - Wrap / Unwrap: "Version:" and "Cipher:" header lines ahead of the
//     armored body, parsed best-effort on read.
//
// All layers are stateless across calls and safe for concurrent use.
//
// # Fields
//
// Field composes the core into a column descriptor:
//
//	ssn := pgcrypt.NewField(pgcrypt.FieldConfig{
//	    Cipher: pgcrypt.CipherAES,
//	    Key:    []byte("secret"),
//	})
//
//	stored, _ := ssn.Encrypt([]byte("666-27-9811"))
//	plain, _ := ssn.DecryptText(stored)
//
// A nil Key falls back to the process-wide default set with SetDefaultKey.
// Invalid cipher/key combinations fail with ErrInvalidKey at first use, not
// at construction.
//
// # Tag Syntax
//
// The Processor applies fields to tagged struct columns around
// serialization:
//
//	{context}.{action}:"{cipher}"
//
// Valid combinations:
//
//	store.encrypt:"aes"   - Encrypt on store (egress to storage)
//	load.decrypt:"aes"    - Decrypt on load (ingress from storage)
//
// # Basic Usage
//
//	type Employee struct {
//	    ID   string `json:"id"`
//	    Name string `json:"name"`
//	    SSN  string `json:"ssn" store.encrypt:"aes" load.decrypt:"aes"`
//	}
//
//	func (e Employee) Clone() Employee { return e }
//
//	proc, _ := pgcrypt.NewProcessor[Employee](
//	    json.New(),
//	    pgcrypt.WithKey(pgcrypt.CipherAES, aesKey),
//	)
//
//	// Store to database (encrypts SSN to an armored envelope)
//	row, _ := proc.Store(ctx, employee)
//
//	// Load from database (decrypts SSN, honoring the envelope header)
//	employee, _ := proc.Load(ctx, row)
//
// On load, the envelope header selects the cipher when a field for that
// algorithm is registered, so rows written under an older cipher
// configuration keep decrypting.
//
// # Codec Providers
//
// The following codec implementations are available as subpackages:
//
//   - json - JSON encoding (application/json)
//   - xml - XML encoding (application/xml)
//   - yaml - YAML encoding (application/yaml)
//   - msgpack - MessagePack encoding (application/msgpack)
//   - bson - BSON encoding (application/bson)
//
// # Compatibility notes
//
// The scheme is deliberately legacy-faithful: deterministic ciphertext (zero
// IV, no nonce), unauthenticated encryption, and padding whose content bytes
// are not validated on removal. Decrypting with a wrong key yields garbage
// rather than an error; DecryptText reports it as ErrDecode when the bytes
// are not valid text.
package pgcrypt

// Cloner allows types to provide deep copy logic.
// Implementing this interface is required for use with Processor.
//
// The Clone method must return a deep copy where modifications to the clone
// do not affect the original value. For types containing pointers, slices, or maps,
// ensure these are also copied to achieve true isolation.
//
// For simple value types with no pointers, slices, or maps, Clone can simply return
// the receiver value:
//
//	func (e Employee) Clone() Employee { return e }
//
// For types with reference fields, ensure deep copying:
//
//	func (r Record) Clone() Record {
//	    tags := make([]string, len(r.Tags))
//	    copy(tags, r.Tags)
//	    return Record{ID: r.ID, Tags: tags}
//	}
type Cloner[T any] interface {
	Clone() T
}

// Codec provides content-type aware marshaling.
type Codec interface {
	// ContentType returns the MIME type for this codec (e.g., "application/json").
	ContentType() string

	// Marshal encodes v into bytes.
	Marshal(v any) ([]byte, error)

	// Unmarshal decodes data into v.
	Unmarshal(data []byte, v any) error
}

// Override interfaces allow types to bypass reflection-based processing.
// When a type implements one of these interfaces, the Processor calls the
// interface method instead of using reflection to transform fields.

// Encryptable bypasses reflection for store.encrypt actions.
// Implement this to handle all encryption for a type.
type Encryptable interface {
	// Encrypt transforms the receiver's fields that require encryption.
	// The fields map contains all registered field descriptors keyed by
	// cipher. The receiver is a clone, so mutations are safe.
	Encrypt(fields map[CipherAlgo]*Field) error
}

// Decryptable bypasses reflection for load.decrypt actions.
// Implement this to handle all decryption for a type.
type Decryptable interface {
	// Decrypt transforms the receiver's fields that require decryption.
	// The fields map contains all registered field descriptors keyed by
	// cipher. Called on freshly unmarshaled data.
	Decrypt(fields map[CipherAlgo]*Field) error
}
