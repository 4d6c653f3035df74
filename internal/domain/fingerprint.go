package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
	"unicode"
)

// Fingerprint derives the dedup key for a signal. Identity is
// (type, canonical URL) when a URL exists, else (type, normalized title) for
// sources without stable links.
func Fingerprint(sigType SignalType, rawURL, title string) string {
	key := canonicalURL(rawURL)
	if key == "" {
		key = normalizeTitle(title)
	}
	sum := sha256.Sum256([]byte(string(sigType) + "|" + key))
	return hex.EncodeToString(sum[:])
}

func canonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return strings.TrimRight(raw, "/")
	}
	parsed.Fragment = ""
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Path = strings.TrimRight(parsed.Path, "/")
	return parsed.String()
}

// normalizeTitle lowercases, strips punctuation, and collapses whitespace so
// cosmetic edits to a title do not defeat dedup.
func normalizeTitle(title string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimRight(b.String(), " ")
}
