// Package normalize canonicalizes business contact fields for comparison.
// All functions are pure and total over string inputs.
package normalize

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonDigits = regexp.MustCompile(`\D`)

// Phone canonicalizes Australian phone numbers to E.164 (+61...).
// Local mobile (04xx xxx xxx) and landline (0x xxxx xxxx) forms are
// mapped to +61; numbers already carrying the 61 country code are
// normalized to the + form. Anything unrecognized is returned unchanged.
func Phone(raw string) string {
	digits := nonDigits.ReplaceAllString(raw, "")

	switch {
	case len(digits) == 11 && strings.HasPrefix(digits, "61"):
		return "+" + digits
	case len(digits) == 10 && strings.HasPrefix(digits, "0"):
		return "+61" + digits[1:]
	default:
		return raw
	}
}

// Website ensures a URL carries a scheme so hostname extraction works.
func Website(raw string) string {
	w := strings.TrimSpace(raw)
	if w == "" {
		return ""
	}
	if !strings.Contains(w, "://") {
		w = "https://" + w
	}
	return w
}

// Hostname extracts the lowercased hostname from a website string,
// stripping any www prefix. Malformed URLs yield "" rather than an error
// so hostname comparison can never panic or spuriously match.
func Hostname(raw string) string {
	w := Website(raw)
	if w == "" {
		return ""
	}
	u, err := url.Parse(w)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// Email lowercases and trims an email address.
func Email(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// entitySuffixes requires a separator before the suffix so names like
// "REPCO" are not truncated to "REP".
var entitySuffixes = regexp.MustCompile(
	`(?i)[\s,]+(PTY\.?\s*LTD\.?|PTY\.?\s*LIMITED|PTY\.?|LTD\.?|LIMITED|` +
		`INC\.?|INCORPORATED|CORP\.?|CORPORATION|CO\.?|COMPANY|` +
		`P/L|T/A|TRADING\s+AS)\s*\.?\s*$`)

var multiSpace = regexp.MustCompile(`\s{2,}`)

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Name canonicalizes a business name for fuzzy comparison: uppercase,
// accents folded, legal entity suffixes stripped, whitespace collapsed.
// Suffixes are stripped repeatedly so "X PTY LTD" and "X PTY. LIMITED"
// normalize identically.
func Name(raw string) string {
	n, _, _ := transform.String(stripAccents, strings.ToUpper(strings.TrimSpace(raw)))
	for {
		stripped := entitySuffixes.ReplaceAllString(n, "")
		if stripped == n {
			break
		}
		n = stripped
	}
	n = multiSpace.ReplaceAllString(n, " ")
	return strings.TrimSpace(n)
}
