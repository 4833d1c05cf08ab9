package render

import (
	"strings"
	"time"

	"github.com/ehorne/chatvault/src/model"
)

// slugMaxLen caps the slug part of generated filenames.
const slugMaxLen = 50

// Filename builds the output document name for a conversation:
// <YYYYMMDD_HHMMSS>_<slug-or-uuid>.md. The timestamp comes from created_at,
// falling back to now when absent or unparseable.
func Filename(conv model.Conversation, now time.Time) string {
	ts := now
	if t, ok := model.ParseTimestamp(conv.CreatedAt); ok {
		ts = t
	}
	slug := Slugify(conv.Name)
	if slug == "" {
		slug = conv.UUID
	}
	return ts.Format("20060102_150405") + "_" + slug + ".md"
}

// Slugify lowercases name, collapses runs of non-alphanumerics into single
// hyphens, and caps the result at 50 chars. Returns empty when nothing
// survives sanitization.
func Slugify(name string) string {
	var sb strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(name) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			sb.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				sb.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	slug := strings.Trim(sb.String(), "-")
	if len(slug) > slugMaxLen {
		slug = strings.Trim(slug[:slugMaxLen], "-")
	}
	return slug
}
