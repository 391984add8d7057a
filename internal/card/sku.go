package card

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	maxInitials  = 2
	skuHashChars = 6
)

// ParentSKU returns the SKU shared by every finish of one printing: up to two
// upper-cased initials of name followed by the first six hex characters of
// SHA-256("{oracleID}-{collectorNumber}-{setCode}").
//
// Tokens are split on single spaces, so punctuation stays attached to its
// word and a name without letters yields a bare hash. The truncated hash can
// collide for distinct printings; callers that need global uniqueness must
// check the store.
func ParentSKU(name, oracleID, collectorNumber, setCode string) string {
	var initials []rune
	for _, word := range strings.Split(name, " ") {
		if len(initials) == maxInitials {
			break
		}
		r, size := utf8.DecodeRuneInString(word)
		if size == 0 {
			continue
		}
		initials = append(initials, unicode.ToUpper(r))
	}

	sum := sha256.Sum256([]byte(oracleID + "-" + collectorNumber + "-" + setCode))
	return string(initials) + hex.EncodeToString(sum[:])[:skuHashChars]
}

// VariantSKU returns "{parent}-{set}-{finish}-F{collector}" upper-cased.
func VariantSKU(parent, setCode, finish, collectorNumber string) string {
	return strings.ToUpper(parent + "-" + setCode + "-" + finish + "-F" + collectorNumber)
}
