package pgcrypt

import (
	"encoding/base64"
	"fmt"
	"strings"
)

const (
	// armorLineLength is the body line width of the armor format.
	armorLineLength = 76

	// armorEnd terminates every armored message.
	armorEnd = "-----END PGP MESSAGE-----"
)

// crc24 computes the CRC-24/OpenPGP checksum: init 0xB704CE, polynomial
// 0x1864CFB, 24-bit width. The value is part of the on-the-wire armor
// format, so the bitwise algorithm must match exactly.
func crc24(data []byte) uint32 {
	crc := uint32(0xB704CE)
	for _, b := range data {
		crc ^= uint32(b) << 16
		for i := 0; i < 8; i++ {
			crc <<= 1
			if crc&0x1000000 != 0 {
				crc ^= 0x1864CFB
			}
		}
	}
	return crc & 0xFFFFFF
}

// crc24Base64 returns the base64 encoding of the 3-byte big-endian CRC24.
func crc24Base64(data []byte) string {
	sum := crc24(data)
	return base64.StdEncoding.EncodeToString([]byte{
		byte(sum >> 16), byte(sum >> 8), byte(sum),
	})
}

// Armor encodes binary ciphertext as ASCII-armored text: base64 body lines
// wrapped at 76 characters, an "="-prefixed CRC24 checksum line, and an end
// marker, joined with "\n". The result is safe to store or transmit as text.
func Armor(data []byte) string {
	var b strings.Builder
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > armorLineLength {
		b.WriteString(encoded[:armorLineLength])
		b.WriteByte('\n')
		encoded = encoded[armorLineLength:]
	}
	if len(encoded) > 0 {
		b.WriteString(encoded)
		b.WriteByte('\n')
	}
	b.WriteByte('=')
	b.WriteString(crc24Base64(data))
	b.WriteByte('\n')
	b.WriteString(armorEnd)
	b.WriteByte('\n')
	return b.String()
}

// Dearmor decodes ASCII-armored text back to binary. Blank lines, header
// lines ("Name: value"), and dash-marker lines are skipped, so both bare
// armor and full versioned envelopes decode. The checksum line is mandatory:
// a structurally malformed input (missing checksum, invalid base64, data
// after the checksum) fails with ErrArmorFormat, a checksum mismatch with
// ErrArmorChecksum.
//
// Empty input is a hard failure, not an empty result. Callers holding
// possibly-blank column values must special-case those before calling
// Dearmor; the Field layer does.
func Dearmor(text string) ([]byte, error) {
	var body strings.Builder
	var checksum string
	seenChecksum := false
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "-----"):
			continue
		case strings.Contains(line, ": "):
			// Envelope header. Metadata only, never part of the body.
			continue
		case strings.HasPrefix(line, "="):
			checksum = line[1:]
			seenChecksum = true
		default:
			if seenChecksum {
				return nil, fmt.Errorf("%w: data after checksum line", ErrArmorFormat)
			}
			body.WriteString(line)
		}
	}
	if !seenChecksum {
		return nil, fmt.Errorf("%w: missing checksum line", ErrArmorFormat)
	}

	data, err := base64.StdEncoding.DecodeString(body.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArmorFormat, err)
	}
	want, err := base64.StdEncoding.DecodeString(checksum)
	if err != nil || len(want) != 3 {
		return nil, fmt.Errorf("%w: malformed checksum line", ErrArmorFormat)
	}

	got := crc24(data)
	if want[0] != byte(got>>16) || want[1] != byte(got>>8) || want[2] != byte(got) {
		return nil, fmt.Errorf("%w: crc24 %02x%02x%02x does not match body", ErrArmorChecksum, want[0], want[1], want[2])
	}
	return data, nil
}
