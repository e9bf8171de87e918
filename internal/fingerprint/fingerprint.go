package fingerprint

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/lijiahao771202-dev/Englishoo-sub002/internal/domain"
)

// Normalize concatenates the identity fields of an entry after cleaning
// each part. It trims whitespace, lowercases, and normalizes line endings,
// so cosmetic edits in a source file do not produce a "new" word.
//
// Only term, definition and translation participate: phonetics, examples
// and mnemonics are enrichment that may be regenerated without changing
// what the word is.
func Normalize(entry domain.WordEntry) string {
	normalizePart := func(part string) string {
		p := strings.ToLower(part)
		p = strings.TrimSpace(p)
		p = strings.ReplaceAll(p, "\r\n", "\n")
		return p
	}

	term := normalizePart(entry.Term)
	def := normalizePart(entry.Definition)
	tr := normalizePart(entry.Translation)

	// Joined with newlines so adjacent fields cannot run together and
	// collide ("a b"+"c" vs "a"+"b c").
	return strings.Join([]string{term, def, tr}, "\n")
}

// Hash normalizes the entry and returns its SHA-256 as a hex string.
func Hash(entry domain.WordEntry) string {
	normalized := Normalize(entry)
	sum := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", sum)
}
