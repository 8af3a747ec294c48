package pgcrypt

import "strings"

// Header holds the metadata parsed from a versioned envelope. It records how
// a value was encrypted so later reads can select the correct cipher even
// after defaults change. Recognized reports whether a Version header was
// found; when false, callers fall back to their configured cipher.
//
// The header never participates in the cipher transform. It is re-derivable
// from the configuration that produced the value.
type Header struct {
	Cipher     CipherAlgo
	Version    string
	Recognized bool
}

// Wrap prepends Version and Cipher header lines, followed by a blank
// separator, to an armored body. The headers follow the armor format's
// comment-line convention, so armor decoders that ignore headers still
// decode the body.
func Wrap(algo CipherAlgo, version, armored string) string {
	var b strings.Builder
	b.WriteString("Version: ")
	b.WriteString(product)
	b.WriteByte(' ')
	b.WriteString(version)
	b.WriteByte('\n')
	if algo != "" {
		b.WriteString("Cipher: ")
		b.WriteString(string(algo))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	b.WriteString(armored)
	return b.String()
}

// Unwrap splits a stored value into header metadata and the armored body.
// Parsing is best-effort: unknown header names are skipped and a missing
// header block leaves the zero Header, it never fails. The body is returned
// bit-exact, so Unwrap(Wrap(a, v, body)) recovers body unchanged.
func Unwrap(text string) (Header, string) {
	var h Header
	lines := strings.Split(text, "\n")
	body := 0
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			body = i + 1
			continue
		}
		name, value, ok := strings.Cut(trimmed, ": ")
		if !ok {
			body = i
			break
		}
		switch name {
		case "Version":
			// "Version: <product> <version>"; the producing product name
			// is informational, only the version is kept.
			if fields := strings.Fields(value); len(fields) > 0 {
				h.Version = fields[len(fields)-1]
				h.Recognized = true
			}
		case "Cipher":
			if algo := CipherAlgo(value); IsValidCipherAlgo(algo) {
				h.Cipher = algo
			}
		}
		body = i + 1
	}
	return h, strings.Join(lines[body:], "\n")
}
