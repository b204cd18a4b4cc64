package identity

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// maxSlugLen bounds generated slugs so they stay usable as subdomains.
const maxSlugLen = 30

// Slugify derives a URL-safe slug from a display name: lowercase, stripped to
// [a-z0-9-], repeated separators collapsed, truncated to maxSlugLen.
func Slugify(name string) string {
	var b strings.Builder
	lastDash := true // suppress leading dashes
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}

	slug := strings.Trim(b.String(), "-")
	if len(slug) > maxSlugLen {
		slug = strings.Trim(slug[:maxSlugLen], "-")
	}
	if slug == "" {
		slug = "school"
	}
	return slug
}

// Disambiguate appends a high-resolution timestamp suffix to a slug that
// collided with an existing one. The base is shortened so the result still
// fits within maxSlugLen; successive calls produce monotonically increasing
// suffixes, so concurrent callers racing on the same base slug diverge.
func Disambiguate(slug string) string {
	suffix := strconv.FormatInt(time.Now().UnixNano()%1_000_000_000, 10)
	keep := maxSlugLen - len(suffix) - 1
	if len(slug) > keep {
		slug = strings.Trim(slug[:keep], "-")
	}
	return slug + "-" + suffix
}

// NewUUID returns a random 128-bit identifier. Collision probability is
// negligible, so no uniqueness check is made.
func NewUUID() string {
	return uuid.NewString()
}

// TenantDatabaseName derives the isolated database name for a school. It is
// deterministic and must only be called once the registry-assigned id is
// durable; the name is assigned once and never reused.
func TenantDatabaseName(schoolID int64) string {
	return fmt.Sprintf("school_%d_db", schoolID)
}
