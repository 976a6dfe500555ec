package codec

import (
	"strings"
	"unicode"

	"github.com/arlowe/jetindex/internal/dberr"
)

// ActualForm returns the "actual" form of a string value: the original
// characters uppercased. Text entry columns retain it alongside the index
// form; their ordering uses the index form, not this one.
func ActualForm(s string) string {
	return strings.ToUpper(s)
}

// IndexForm derives the index form from the actual form: every '.'
// character removed. This is the form that gets serialized and that newly
// inserted text entry columns are compared by.
func IndexForm(actual string) string {
	return strings.ReplaceAll(actual, ".", "")
}

// EncodeString produces the coded-character byte sequence for a string's
// index form: one or two bytes per character (the prefix byte plus code,
// for prefixed codes), followed by the "_"-string anomaly byte when the
// entire string is a single underscore. It does not include the leading
// presence byte, the terminator, or any extra bytes; Entry assembles
// those around it.
func EncodeString(t *CharCodeTable, indexForm string) ([]byte, error) {
	var buf []byte
	for _, ch := range indexForm {
		code, ok := t.Code(unicode.ToUpper(ch))
		if !ok {
			return nil, dberr.UnmappedIndexCharacter("character %q has no legacy code table entry", ch)
		}
		if t.IsPrefixed(code) {
			buf = append(buf, prefixByte, code)
		} else {
			buf = append(buf, code)
		}
	}

	// Anomaly: the legacy encoder emits an extra byte 3 after the mapped
	// byte(s) when the entire string equals "_".
	if indexForm == "_" {
		buf = append(buf, 3)
	}

	return buf, nil
}

// DecodeString parses a coded-character byte sequence (as produced by
// EncodeString, without the presence byte, terminator, or extra bytes)
// back into a string of characters. A prefixed code appearing without its
// prefix byte (the "_"-string anomaly byte) is skipped rather than decoded,
// so callers can pass the anomaly byte through unchanged.
func DecodeString(t *CharCodeTable, coded []byte) (string, error) {
	var sb strings.Builder
	for i := 0; i < len(coded); i++ {
		b := coded[i]

		if b != prefixByte && prefixedCodes[b] {
			// A prefixed code's byte value appearing on its own (not
			// preceded by prefixByte) never comes from a legitimately
			// encoded character - the only source is the "_"-string
			// anomaly byte. Drop it rather than decoding
			// it as a second character.
			continue
		}

		code := b
		if b == prefixByte {
			i++
			if i >= len(coded) {
				return "", dberr.FormatViolation("coded string ends mid prefix sequence")
			}
			code = coded[i]
		}
		ch, ok := t.Char(code)
		if !ok {
			return "", dberr.FormatViolation("coded string contains unmapped code %d", code)
		}
		sb.WriteRune(ch)
	}
	return sb.String(), nil
}
