package pgcrypt

import (
	"strings"
	"testing"
)

func TestWrap_HeaderLayout(t *testing.T) {
	body := Armor([]byte("ciphertext"))
	wrapped := Wrap(CipherBlowfish, "1.0.0", body)

	lines := strings.Split(wrapped, "\n")
	if lines[0] != "Version: pgcrypt 1.0.0" {
		t.Errorf("line 0 = %q, want version header", lines[0])
	}
	if lines[1] != "Cipher: bf" {
		t.Errorf("line 1 = %q, want cipher header", lines[1])
	}
	if lines[2] != "" {
		t.Errorf("line 2 = %q, want blank separator", lines[2])
	}
}

func TestWrapUnwrap_RoundTrip(t *testing.T) {
	body := Armor([]byte("some binary ciphertext"))

	header, got := Unwrap(Wrap(CipherAES, Version, body))
	if got != body {
		t.Errorf("Unwrap() body = %q, want bit-exact %q", got, body)
	}
	if !header.Recognized {
		t.Error("Unwrap() should recognize the version header")
	}
	if header.Version != Version {
		t.Errorf("Unwrap() version = %q, want %q", header.Version, Version)
	}
	if header.Cipher != CipherAES {
		t.Errorf("Unwrap() cipher = %q, want %q", header.Cipher, CipherAES)
	}
}

func TestUnwrap_NoHeader(t *testing.T) {
	body := Armor([]byte("bare armored value"))

	header, got := Unwrap(body)
	if header.Recognized {
		t.Error("Unwrap() should not recognize a headerless value")
	}
	if header.Cipher != "" {
		t.Errorf("Unwrap() cipher = %q, want empty", header.Cipher)
	}
	if got != body {
		t.Errorf("Unwrap() body = %q, want input unchanged", got)
	}
}

func TestUnwrap_UnknownHeadersSkipped(t *testing.T) {
	body := Armor([]byte("data"))
	text := "Comment: written by a legacy exporter\nCharset: utf-8\n\n" + body

	header, got := Unwrap(text)
	if header.Recognized {
		t.Error("unknown headers alone should not mark the value recognized")
	}
	if got != body {
		t.Errorf("Unwrap() body = %q, want %q", got, body)
	}
}

func TestUnwrap_UnknownCipherIgnored(t *testing.T) {
	body := Armor([]byte("data"))
	text := "Version: pgcrypt 0.9.0\nCipher: des\n\n" + body

	header, got := Unwrap(text)
	if !header.Recognized {
		t.Error("Unwrap() should recognize the version header")
	}
	if header.Cipher != "" {
		t.Errorf("Unwrap() cipher = %q, want empty for unknown cipher", header.Cipher)
	}
	if got != body {
		t.Errorf("Unwrap() body = %q, want %q", got, body)
	}
}

func TestUnwrap_ForeignProduct(t *testing.T) {
	// Values written by other producers still yield a version hint.
	body := Armor([]byte("data"))
	header, _ := Unwrap("Version: django-pgcrypto 2.1.0\n\n" + body)

	if !header.Recognized {
		t.Error("Unwrap() should recognize a foreign Version header")
	}
	if header.Version != "2.1.0" {
		t.Errorf("Unwrap() version = %q, want %q", header.Version, "2.1.0")
	}
}
