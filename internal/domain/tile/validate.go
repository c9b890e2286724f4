package tile

import (
	"strings"

	"github.com/stormlens/tileindex/internal/domain"
)

const maxIDLen = 200

// ValidateID checks the identifier shape: non-empty, at most 200 characters,
// free of path separators and control characters that could escape a key space.
func ValidateID(id string) error {
	if id == "" || len(id) > maxIDLen {
		return domain.Invalid("image_id must be 1-%d characters", maxIDLen)
	}
	if strings.ContainsAny(id, "/\\\x00\n\r") {
		return domain.Invalid("image_id contains invalid characters")
	}
	return nil
}

// ValidateURL checks the scheme and the host allow-list. The allow-list is a
// substring match against the full URL, not a parsed-hostname comparison.
func ValidateURL(rawURL string, allowedHosts []string) error {
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return domain.Invalid("url must start with http:// or https://")
	}
	for _, host := range allowedHosts {
		if host != "" && strings.Contains(rawURL, host) {
			return nil
		}
	}
	return domain.Invalid("url host not allowed: %s", strings.Join(allowedHosts, ", "))
}
