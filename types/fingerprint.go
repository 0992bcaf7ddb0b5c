package types

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// Fingerprint derives the stable content identity of an item from its link
// and title. Two entries for the same story (same canonical URL, titles that
// differ only in case or spacing) always hash to the same value.
// The result is sha256(canonicalURL + "|" + normalizedTitle) in hex.
func Fingerprint(rawURL, title string) string {
	combined := CanonicalURL(rawURL) + "|" + normalizeTitle(title)
	h := sha256.Sum256([]byte(combined))
	return hex.EncodeToString(h[:])
}

func normalizeTitle(t string) string {
	t = strings.TrimSpace(t)
	t = strings.ToLower(t)
	// collapse multiple whitespace
	fields := strings.Fields(t)
	return strings.Join(fields, " ")
}

// CanonicalURL normalizes a link for identity comparison:
// - lowercase scheme and host
// - remove fragment
// - remove common tracking query params (utm_*, fbclid, gclid)
// - trim trailing slash
func CanonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		// fallback: lowercase and trim
		return strings.ToLower(raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	u.Fragment = ""

	q := u.Query()
	for k := range q {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "utm_") || lk == "fbclid" || lk == "gclid" {
			q.Del(k)
		}
	}
	u.RawQuery = q.Encode()

	out := u.String()
	if strings.HasSuffix(out, "/") {
		out = strings.TrimRight(out, "/")
	}
	return out
}
