package pgcrypt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

// testCodec is a simple JSON codec for testing.
type testCodec struct{}

func (c *testCodec) ContentType() string { return "application/json" }

func (c *testCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (c *testCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// PlainRecord has no encryption tags.
type PlainRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (r PlainRecord) Clone() PlainRecord { return r }

// SecretRecord has string columns under both ciphers.
type SecretRecord struct {
	ID    string `json:"id"`
	SSN   string `json:"ssn" store.encrypt:"aes" load.decrypt:"aes"`
	Email string `json:"email" store.encrypt:"bf" load.decrypt:"bf"`
}

func (r SecretRecord) Clone() SecretRecord { return r }

// BinaryRecord has a []byte column.
type BinaryRecord struct {
	ID  string `json:"id"`
	Key []byte `json:"key" store.encrypt:"aes" load.decrypt:"aes"`
}

func (r BinaryRecord) Clone() BinaryRecord {
	c := r
	c.Key = append([]byte(nil), r.Key...)
	return c
}

// CollectionRecord has slice and map columns.
type CollectionRecord struct {
	ID     string            `json:"id"`
	Phones []string          `json:"phones" store.encrypt:"aes" load.decrypt:"aes"`
	Notes  map[string]string `json:"notes" store.encrypt:"aes" load.decrypt:"aes"`
}

func (r CollectionRecord) Clone() CollectionRecord {
	c := r
	c.Phones = append([]string(nil), r.Phones...)
	if r.Notes != nil {
		c.Notes = make(map[string]string, len(r.Notes))
		for k, v := range r.Notes {
			c.Notes[k] = v
		}
	}
	return c
}

// ContactInfo is embedded in NestedRecord.
type ContactInfo struct {
	Email string `json:"email" store.encrypt:"aes" load.decrypt:"aes"`
	Phone string `json:"phone"`
}

// NestedRecord has tagged columns inside nested and pointer structs.
type NestedRecord struct {
	ID      string       `json:"id"`
	Contact ContactInfo  `json:"contact"`
	Backup  *ContactInfo `json:"backup,omitempty"`
}

func (r NestedRecord) Clone() NestedRecord {
	c := r
	if r.Backup != nil {
		b := *r.Backup
		c.Backup = &b
	}
	return c
}

func newAESProcessor[T Cloner[T]](t *testing.T) *Processor[T] {
	t.Helper()
	proc, err := NewProcessor[T](&testCodec{}, WithKey(CipherAES, []byte("pass")))
	if err != nil {
		t.Fatalf("NewProcessor() error: %v", err)
	}
	return proc
}

func TestNewProcessor(t *testing.T) {
	proc, err := NewProcessor[PlainRecord](&testCodec{})
	if err != nil {
		t.Fatalf("NewProcessor() error: %v", err)
	}
	if proc == nil {
		t.Error("NewProcessor() returned nil")
	}
}

// BadTagRecord names a cipher that does not exist.
type BadTagRecord struct {
	ID     string `json:"id"`
	Secret string `json:"secret" store.encrypt:"des"`
}

func (r BadTagRecord) Clone() BadTagRecord { return r }

func TestNewProcessor_InvalidTag(t *testing.T) {
	_, err := NewProcessor[BadTagRecord](&testCodec{})
	if !errors.Is(err, ErrInvalidTag) {
		t.Errorf("NewProcessor() error = %v, want ErrInvalidTag", err)
	}
}

func TestProcessor_SetField(t *testing.T) {
	proc, _ := NewProcessor[SecretRecord](&testCodec{})

	result := proc.SetField(CipherAES, NewField(FieldConfig{Cipher: CipherAES, Key: []byte("pass")}))
	if result != proc {
		t.Error("SetField() should return processor for chaining")
	}
}

func TestProcessor_Validate_MissingField(t *testing.T) {
	proc, _ := NewProcessor[SecretRecord](&testCodec{},
		WithKey(CipherAES, []byte("pass")))

	err := proc.Validate()
	if !errors.Is(err, ErrMissingField) {
		t.Errorf("Validate() error = %v, want ErrMissingField", err)
	}

	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatal("Validate() should return a *ConfigError")
	}
	if cfgErr.Algorithm != "bf" {
		t.Errorf("ConfigError.Algorithm = %q, want %q", cfgErr.Algorithm, "bf")
	}
	if cfgErr.Field != "Email" {
		t.Errorf("ConfigError.Field = %q, want %q", cfgErr.Field, "Email")
	}
}

func TestProcessor_Validate_AllConfigured(t *testing.T) {
	proc, _ := NewProcessor[SecretRecord](&testCodec{},
		WithKey(CipherAES, []byte("pass")),
		WithKey(CipherBlowfish, []byte("pass")))

	if err := proc.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestProcessor_StoreLoad_RoundTrip(t *testing.T) {
	proc, err := NewProcessor[SecretRecord](&testCodec{},
		WithKey(CipherAES, []byte("pass")),
		WithKey(CipherBlowfish, []byte("pass")))
	if err != nil {
		t.Fatalf("NewProcessor() error: %v", err)
	}

	original := SecretRecord{ID: "u1", SSN: "666-27-9811", Email: "alice@example.com"}

	data, err := proc.Store(context.Background(), &original)
	if err != nil {
		t.Fatalf("Store() error: %v", err)
	}

	loaded, err := proc.Load(context.Background(), data)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if *loaded != original {
		t.Errorf("Load() = %+v, want %+v", *loaded, original)
	}
}

func TestProcessor_Store_EncryptsColumns(t *testing.T) {
	proc, _ := NewProcessor[SecretRecord](&testCodec{},
		WithKey(CipherAES, []byte("pass")),
		WithKey(CipherBlowfish, []byte("pass")))

	original := SecretRecord{ID: "u1", SSN: "666-27-9811", Email: "alice@example.com"}
	data, err := proc.Store(context.Background(), &original)
	if err != nil {
		t.Fatalf("Store() error: %v", err)
	}

	var stored map[string]string
	if err := json.Unmarshal(data, &stored); err != nil {
		t.Fatalf("unmarshal stored document: %v", err)
	}

	if stored["id"] != "u1" {
		t.Errorf("untagged column changed: %q", stored["id"])
	}
	if stored["ssn"] == original.SSN || !strings.Contains(stored["ssn"], "Cipher: aes") {
		t.Errorf("ssn column not encrypted under aes: %q", stored["ssn"])
	}
	if stored["email"] == original.Email || !strings.Contains(stored["email"], "Cipher: bf") {
		t.Errorf("email column not encrypted under bf: %q", stored["email"])
	}
}

func TestProcessor_Store_DoesNotMutateOriginal(t *testing.T) {
	proc, _ := NewProcessor[SecretRecord](&testCodec{},
		WithKey(CipherAES, []byte("pass")),
		WithKey(CipherBlowfish, []byte("pass")))

	original := SecretRecord{ID: "u1", SSN: "666-27-9811", Email: "alice@example.com"}
	if _, err := proc.Store(context.Background(), &original); err != nil {
		t.Fatalf("Store() error: %v", err)
	}

	if original.SSN != "666-27-9811" || original.Email != "alice@example.com" {
		t.Errorf("Store() mutated original: %+v", original)
	}
}

func TestProcessor_Store_Nil(t *testing.T) {
	proc := newAESProcessor[PlainRecord](t)

	data, err := proc.Store(context.Background(), nil)
	if err != nil {
		t.Fatalf("Store(nil) error: %v", err)
	}
	if string(data) != "null" {
		t.Errorf("Store(nil) = %q, want %q", data, "null")
	}
}

func TestProcessor_Store_EmptyColumn(t *testing.T) {
	proc, _ := NewProcessor[SecretRecord](&testCodec{},
		WithKey(CipherAES, []byte("pass")),
		WithKey(CipherBlowfish, []byte("pass")))

	original := SecretRecord{ID: "u1"}
	data, err := proc.Store(context.Background(), &original)
	if err != nil {
		t.Fatalf("Store() error: %v", err)
	}

	loaded, err := proc.Load(context.Background(), data)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if loaded.SSN != "" || loaded.Email != "" {
		t.Errorf("blank columns should stay blank: %+v", *loaded)
	}
}

func TestProcessor_BytesColumn(t *testing.T) {
	proc := newAESProcessor[BinaryRecord](t)

	original := BinaryRecord{ID: "k1", Key: []byte{0x01, 0x02, 0xFF, 0xFE}}
	data, err := proc.Store(context.Background(), &original)
	if err != nil {
		t.Fatalf("Store() error: %v", err)
	}

	loaded, err := proc.Load(context.Background(), data)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if string(loaded.Key) != string(original.Key) {
		t.Errorf("Load() key = %v, want %v", loaded.Key, original.Key)
	}
}

func TestProcessor_SliceAndMapColumns(t *testing.T) {
	proc := newAESProcessor[CollectionRecord](t)

	original := CollectionRecord{
		ID:     "c1",
		Phones: []string{"555-0100", "555-0101"},
		Notes:  map[string]string{"billing": "net 30", "contact": "after 5pm"},
	}

	data, err := proc.Store(context.Background(), &original)
	if err != nil {
		t.Fatalf("Store() error: %v", err)
	}

	var stored struct {
		Phones []string          `json:"phones"`
		Notes  map[string]string `json:"notes"`
	}
	if err := json.Unmarshal(data, &stored); err != nil {
		t.Fatalf("unmarshal stored document: %v", err)
	}
	for i, v := range stored.Phones {
		if v == original.Phones[i] {
			t.Errorf("phones[%d] not encrypted: %q", i, v)
		}
	}
	for k, v := range stored.Notes {
		if v == original.Notes[k] {
			t.Errorf("notes[%q] not encrypted: %q", k, v)
		}
	}

	loaded, err := proc.Load(context.Background(), data)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	for i, v := range loaded.Phones {
		if v != original.Phones[i] {
			t.Errorf("phones[%d] = %q, want %q", i, v, original.Phones[i])
		}
	}
	for k, v := range loaded.Notes {
		if v != original.Notes[k] {
			t.Errorf("notes[%q] = %q, want %q", k, v, original.Notes[k])
		}
	}
}

func TestProcessor_NestedColumns(t *testing.T) {
	proc := newAESProcessor[NestedRecord](t)

	original := NestedRecord{
		ID:      "n1",
		Contact: ContactInfo{Email: "alice@example.com", Phone: "555-0100"},
		Backup:  &ContactInfo{Email: "bob@example.com"},
	}

	data, err := proc.Store(context.Background(), &original)
	if err != nil {
		t.Fatalf("Store() error: %v", err)
	}

	loaded, err := proc.Load(context.Background(), data)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if loaded.Contact.Email != original.Contact.Email {
		t.Errorf("Contact.Email = %q, want %q", loaded.Contact.Email, original.Contact.Email)
	}
	if loaded.Contact.Phone != "555-0100" {
		t.Errorf("untagged nested column changed: %q", loaded.Contact.Phone)
	}
	if loaded.Backup == nil || loaded.Backup.Email != original.Backup.Email {
		t.Errorf("Backup.Email not recovered: %+v", loaded.Backup)
	}
}

func TestProcessor_NestedNilPointer(t *testing.T) {
	proc := newAESProcessor[NestedRecord](t)

	original := NestedRecord{ID: "n2", Contact: ContactInfo{Email: "alice@example.com"}}
	data, err := proc.Store(context.Background(), &original)
	if err != nil {
		t.Fatalf("Store() error: %v", err)
	}

	loaded, err := proc.Load(context.Background(), data)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if loaded.Backup != nil {
		t.Errorf("nil pointer should stay nil: %+v", loaded.Backup)
	}
}

func TestProcessor_Load_HeaderSelectsField(t *testing.T) {
	// A value stored under bf loads through a column now tagged aes: the
	// envelope header routes it to the registered bf field.
	writer := NewField(FieldConfig{Cipher: CipherBlowfish, Key: []byte("pass")})
	legacy, err := writer.Encrypt([]byte("alice@example.com"))
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}

	proc, err := NewProcessor[migratedRecord](&testCodec{},
		WithKey(CipherAES, []byte("pass")),
		WithKey(CipherBlowfish, []byte("pass")))
	if err != nil {
		t.Fatalf("NewProcessor() error: %v", err)
	}

	raw, err := json.Marshal(map[string]string{"id": "u1", "email": legacy})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	loaded, err := proc.Load(context.Background(), raw)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if loaded.Email != "alice@example.com" {
		t.Errorf("Load() email = %q, want %q", loaded.Email, "alice@example.com")
	}
}

// migratedRecord tags its column aes although legacy rows were written
// under bf.
type migratedRecord struct {
	ID    string `json:"id"`
	Email string `json:"email" store.encrypt:"aes" load.decrypt:"aes"`
}

func (r migratedRecord) Clone() migratedRecord { return r }

func TestProcessor_Load_WrongKeyFails(t *testing.T) {
	writer, _ := NewProcessor[migratedRecord](&testCodec{},
		WithKey(CipherAES, []byte("pass")))

	original := migratedRecord{ID: "u1", Email: "alice@example.com"}
	data, err := writer.Store(context.Background(), &original)
	if err != nil {
		t.Fatalf("Store() error: %v", err)
	}

	reader, _ := NewProcessor[migratedRecord](&testCodec{},
		WithKey(CipherAES, []byte("not the right key at all")))

	loaded, err := reader.Load(context.Background(), data)
	if err == nil && loaded.Email == original.Email {
		t.Error("wrong key should not recover plaintext")
	}
	if err != nil {
		var tErr *TransformError
		if !errors.As(err, &tErr) {
			t.Errorf("Load() error = %v, want *TransformError", err)
		} else if tErr.Operation != "decrypt" {
			t.Errorf("TransformError.Operation = %q, want %q", tErr.Operation, "decrypt")
		}
	}
}

// customRecord overrides the tag-driven pipeline entirely.
type customRecord struct {
	ID     string `json:"id"`
	Secret string `json:"secret"`
}

func (r customRecord) Clone() customRecord { return r }

func (r *customRecord) Encrypt(fields map[CipherAlgo]*Field) error {
	f, ok := fields[CipherAES]
	if !ok {
		return ErrMissingField
	}
	out, err := f.Encrypt([]byte(r.Secret))
	if err != nil {
		return err
	}
	r.Secret = out
	return nil
}

func (r *customRecord) Decrypt(fields map[CipherAlgo]*Field) error {
	f, ok := fields[CipherAES]
	if !ok {
		return ErrMissingField
	}
	out, err := f.DecryptText(r.Secret)
	if err != nil {
		return err
	}
	r.Secret = out
	return nil
}

func TestProcessor_OverrideInterfaces(t *testing.T) {
	proc := newAESProcessor[customRecord](t)

	original := customRecord{ID: "u1", Secret: "override me"}
	data, err := proc.Store(context.Background(), &original)
	if err != nil {
		t.Fatalf("Store() error: %v", err)
	}

	var stored map[string]string
	if err := json.Unmarshal(data, &stored); err != nil {
		t.Fatalf("unmarshal stored document: %v", err)
	}
	if stored["secret"] == original.Secret {
		t.Error("Encryptable override did not run")
	}

	loaded, err := proc.Load(context.Background(), data)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if loaded.Secret != original.Secret {
		t.Errorf("Load() secret = %q, want %q", loaded.Secret, original.Secret)
	}
}

func TestProcessor_Load_InvalidPayload(t *testing.T) {
	proc := newAESProcessor[PlainRecord](t)

	if _, err := proc.Load(context.Background(), []byte("{not json")); err == nil {
		t.Error("Load() should fail on malformed input")
	}
}
