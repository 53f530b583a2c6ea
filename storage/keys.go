package storage

import (
	"path"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/leeforge/imageflow/policy"
)

// DeriveKey maps a logical source key and a variant to the object key the
// variant is published under: stem(K)-V.ext. The derivation is pure, so
// re-processing the same source overwrites rather than duplicates, and
// distinct variant names guarantee distinct keys.
func DeriveKey(logicalKey, variantName string, format policy.Format) string {
	return stem(logicalKey) + "-" + variantName + "." + format.Ext()
}

// stem strips the extension from the last path segment of key, keeping any
// directory prefix intact: "product/123.png" -> "product/123".
func stem(key string) string {
	ext := path.Ext(key)
	return strings.TrimSuffix(key, ext)
}

var keyFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// SanitizeKey folds a caller-supplied logical key into the safe character
// set used for object keys: diacritics removed, spaces collapsed to dashes,
// leading slashes dropped. ASCII keys pass through unchanged.
func SanitizeKey(key string) string {
	folded, _, err := transform.String(keyFolder, key)
	if err != nil {
		folded = key
	}
	folded = strings.TrimPrefix(folded, "/")
	return strings.Map(func(r rune) rune {
		switch {
		case r == ' ':
			return '-'
		case r < 0x20 || r == 0x7f:
			return -1
		default:
			return r
		}
	}, folded)
}
