// Package identity maps the opaque character identifiers owned by the game
// database (e.g. "char42:9f3a01bc...") to the numeric citizen IDs used as
// references throughout the primary store.
//
// The mapping is a pure function of the identifier. Nothing is persisted:
// every read re-derives the ID. It is lossy (only the first 8 hex characters
// of the hash part participate), so two identifiers that share those
// characters alias to the same numeric ID.
package identity

import "fmt"

// hashWindow is the number of hash characters that participate in the ID.
const hashWindow = 8

// Unknown is the numeric ID for an empty or unparsable identifier.
const Unknown int64 = 0

// HashPart returns the portion of identifier after the first ':' or the
// whole identifier when it has no colon.
func HashPart(identifier string) string {
	for i := 0; i < len(identifier); i++ {
		if identifier[i] == ':' {
			return identifier[i+1:]
		}
	}
	return identifier
}

// DeriveNumericID returns the numeric citizen ID for identifier.
//
// The first 8 characters of the hash part are read as base-16. Only the
// leading run of hex digits inside that window is used; a window that does
// not start with a hex digit (or an empty identifier) yields Unknown.
//
// The window is read literally. There is no "0x" prefix, sign or whitespace
// handling, so a window starting with a space or '-' yields Unknown and
// "0xff" reads as 0 (the run stops at 'x'). Derived IDs are never negative.
//
//	DeriveNumericID("char7:1a2b3c4d") // 439041101
//	DeriveNumericID("char7:zz")       // 0
//	DeriveNumericID("char7:0xff")     // 0
func DeriveNumericID(identifier string) int64 {
	h := HashPart(identifier)
	if len(h) > hashWindow {
		h = h[:hashWindow]
	}
	var n int64
	digits := 0
	for i := 0; i < len(h); i++ {
		v, ok := hexVal(h[i])
		if !ok {
			break
		}
		n = n<<4 | int64(v)
		digits++
	}
	if digits == 0 {
		return Unknown
	}
	return n
}

// HashPrefix returns the lowercase, zero-padded 8 character hex window an
// identifier must carry (right after its colon) to derive numericID through
// a full window. It returns "" for IDs that cannot be produced that way.
func HashPrefix(numericID int64) string {
	if numericID <= 0 || numericID > 0xffffffff {
		return ""
	}
	return fmt.Sprintf("%08x", numericID)
}

func hexVal(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
