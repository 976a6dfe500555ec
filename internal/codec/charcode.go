// Package codec implements the legacy character code table and the
// bidirectional mapping between raw column values and their sortable
// index-byte form.
package codec

// prefixByte is the sentinel that must precede a "prefixed" code on the
// wire, and that signals on read that the following byte is a prefixed
// code rather than a literal one.
const prefixByte byte = 0x2B

// terminator ends a text entry-column's coded-character stream.
const terminator byte = 0x01

// prefixedCodes is the set of codes that must be escaped with prefixByte
// when serialized.
var prefixedCodes = map[byte]bool{2: true, 3: true, 9: true, 11: true, 13: true, 15: true}

// CharCodeTable is the process-wide immutable mapping between the legacy
// character set and single-byte codes, built once and never mutated
// after initialization.
type CharCodeTable struct {
	charToCode map[rune]byte
	codeToChar map[byte]rune
}

// defaultTable is built once at init and shared by every caller.
var defaultTable = buildDefaultTable()

// Default returns the process-wide legacy code table.
func Default() *CharCodeTable { return defaultTable }

// buildDefaultTable constructs the mapping covering the closed ASCII
// subset {space, digits, uppercase letters, and a fixed punctuation
// set}, with six characters assigned to the "prefixed" codes
// {2, 3, 9, 11, 13, 15}.
//
// This table is deliberately abridged: the real format's full character
// set also carries extended Latin codepoints this module's closed ASCII
// subset omits. The exact byte assigned to each character beyond the
// two fixed points this module pins down ('_' -> code 3, 'A' -> 0x4A)
// is this module's own deterministic assignment. See DESIGN.md for the
// derivation: a contiguous digit block, a reserved gap standing in for
// the omitted extended range, then letters landing exactly on
// 'A' == 0x4A, then the remaining punctuation.
func buildDefaultTable() *CharCodeTable {
	t := &CharCodeTable{
		charToCode: make(map[rune]byte, 64),
		codeToChar: make(map[byte]rune, 64),
	}

	assign := func(ch rune, code byte) {
		t.charToCode[ch] = code
		t.codeToChar[code] = ch
	}

	// Prefixed codes: six characters that must be escaped with
	// prefixByte on the wire. '_' -> 3 is a fixed assignment.
	assign(' ', 2)
	assign('_', 3)
	assign('#', 9)
	assign('$', 11)
	assign('%', 13)
	assign('&', 15)

	// Digits, contiguous from 16.
	for i, d := range "0123456789" {
		assign(d, byte(16+i))
	}

	// Codes 26-73 are left unassigned: in the real format this range
	// carries extended Latin characters outside this module's closed
	// ASCII subset.

	// Letters land at 74 so that 'A' == 0x4A.
	for i, ch := range "ABCDEFGHIJKLMNOPQRSTUVWXYZ" {
		assign(ch, byte(74+i))
	}

	// Remaining (non-prefixed) punctuation, contiguous from 100.
	for i, ch := range "()*,/:;?@+<=>^{|}~" {
		assign(ch, byte(100+i))
	}

	return t
}

// Code returns the byte code for ch and whether it is mapped at all.
func (t *CharCodeTable) Code(ch rune) (code byte, ok bool) {
	code, ok = t.charToCode[ch]
	return
}

// IsPrefixed reports whether code must be preceded by prefixByte on the
// wire.
func (t *CharCodeTable) IsPrefixed(code byte) bool {
	return prefixedCodes[code]
}

// Char returns the character mapped to code, and whether it is mapped at
// all.
func (t *CharCodeTable) Char(code byte) (ch rune, ok bool) {
	ch, ok = t.codeToChar[code]
	return
}
