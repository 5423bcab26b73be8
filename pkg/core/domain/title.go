package domain

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// UntitledPlaceholder is the last-resort title when nothing can be derived.
const UntitledPlaceholder = "Untitled"

var bannedWord = regexp.MustCompile(`(?i)\bvirtual\b`)

// SanitizeTitle strips the banned word, collapses whitespace and falls back
// to a name derived from rawURL when nothing is left.
func SanitizeTitle(title, rawURL string) string {
	cleaned := bannedWord.ReplaceAllString(title, " ")
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if cleaned == "" {
		return FallbackTitle(rawURL)
	}
	return cleaned
}

// FallbackTitle capitalizes the first hostname label of rawURL ("www." is
// skipped). Strings without a host are returned trimmed as they are.
func FallbackTitle(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if host := Hostname(rawURL); host != "" {
		label := strings.Split(strings.TrimPrefix(host, "www."), ".")[0]
		if first, size := utf8.DecodeRuneInString(label); first != utf8.RuneError {
			return string(unicode.ToUpper(first)) + label[size:]
		}
	}
	if rawURL == "" {
		return UntitledPlaceholder
	}
	return rawURL
}

// NeedsTitle reports whether a stored title must be regenerated.
func NeedsTitle(title string) bool {
	title = strings.TrimSpace(title)
	return title == "" || title == UntitledPlaceholder
}

// Hostname returns the lower-cased host of an absolute URL, or "".
func Hostname(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// ValidateWebURL accepts absolute http(s) URLs only.
func ValidateWebURL(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", ErrInvalidURL
	}
	return u.String(), nil
}

// CleanURL renders a URL as host + path with the trailing slash removed.
func CleanURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Hostname() + strings.TrimSuffix(u.EscapedPath(), "/")
}

// FaviconURL points at the domain favicon service for pages saved without one.
func FaviconURL(rawURL string) string {
	host := Hostname(rawURL)
	if host == "" {
		return ""
	}
	return "https://www.google.com/s2/favicons?domain=" + url.QueryEscape(host) + "&sz=32"
}

var restrictedPrefixes = []string{"chrome://", "edge://", "chrome-extension://", "devtools://", "about:"}

// IsRestrictedURL reports browser-internal pages that cannot host the panel
// and are never saved.
func IsRestrictedURL(rawURL string) bool {
	for _, prefix := range restrictedPrefixes {
		if strings.HasPrefix(rawURL, prefix) {
			return true
		}
	}
	return false
}
