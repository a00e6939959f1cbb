package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// markerTokens are administrative suffixes dropped from multi-token names,
// e.g. "San Roque (Pob.)", "San Roque Poblacion" and "San Roque" all
// normalize to "SANROQUE".
var markerTokens = map[string]bool{
	"POB":       true,
	"POBLACION": true,
}

// NormalizeName folds a municipality or barangay name into a join key:
// diacritics removed, uppercased, split on non-alphanumerics, marker tokens
// dropped (unless the marker is the whole name) and the tokens concatenated.
//
// The result contains only A-Z and 0-9 and NormalizeName(NormalizeName(s)) ==
// NormalizeName(s).
func NormalizeName(s string) string {
	folded, _, err := transform.String(foldDiacritics(), s)
	if err != nil {
		folded = s
	}

	tokens := strings.FieldsFunc(strings.ToUpper(folded), func(r rune) bool {
		return !isKeyRune(r)
	})
	if len(tokens) > 1 {
		kept := tokens[:0]
		for _, tok := range tokens {
			if !markerTokens[tok] {
				kept = append(kept, tok)
			}
		}
		tokens = kept
	}
	return strings.Join(tokens, "")
}

func isKeyRune(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// foldDiacritics returns a fresh transformer (transform.Chain is stateful).
func foldDiacritics() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// AliasTableVersion identifies the revision of DefaultAliases.
const AliasTableVersion = "2025-10-rizal-v1"

// DefaultAliases lists the known spellings of each target municipality.
var DefaultAliases = map[string][]string{
	"ANTIPOLO":         {"CITY OF ANTIPOLO", "ANTIPOLO CITY", "ANTIPOLO"},
	"ANTIPOLO CITY":    {"CITY OF ANTIPOLO", "ANTIPOLO CITY", "ANTIPOLO"},
	"CITY OF ANTIPOLO": {"CITY OF ANTIPOLO", "ANTIPOLO CITY", "ANTIPOLO"},
	"CAINTA":           {"CAINTA"},
	"ANGONO":           {"ANGONO"},
	"TAYTAY":           {"TAYTAY"},
}

// AliasTable expands a normalized municipality name into its alternative
// normalized spellings.
type AliasTable struct {
	Version string
	entries map[string][]string
}

// NewAliasTable normalizes both keys and values of raw. Candidate order is
// preserved and duplicates after normalization are removed.
func NewAliasTable(version string, raw map[string][]string) *AliasTable {
	t := &AliasTable{Version: version, entries: make(map[string][]string, len(raw))}
	for k, vs := range raw {
		key := NormalizeName(k)
		seen := make(map[string]bool, len(vs))
		var out []string
		for _, v := range vs {
			n := NormalizeName(v)
			if n == "" || seen[n] {
				continue
			}
			seen[n] = true
			out = append(out, n)
		}
		t.entries[key] = out
	}
	return t
}

// DefaultAliasTable returns the table built from DefaultAliases.
func DefaultAliasTable() *AliasTable {
	return NewAliasTable(AliasTableVersion, DefaultAliases)
}

// Expand returns the alias candidates for a normalized municipality name, or
// nil when the name has no entry.
func (t *AliasTable) Expand(normalizedMunicipality string) []string {
	if t == nil {
		return nil
	}
	return t.entries[normalizedMunicipality]
}
