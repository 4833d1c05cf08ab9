package render

import (
	"regexp"
	"strings"
)

// Fenced spans: opening fence with optional language tag, body, closing
// fence. (?s) lets the body span lines; the lazy body stops at the first
// closing fence, so unbalanced fences are left untouched.
var fencedBlockRe = regexp.MustCompile("(?s)```([A-Za-z0-9_+-]*)\n(.*?)```")

// NormalizeCodeBlocks rewrites fenced code spans, trimming one leading and
// one trailing newline inside the fence while keeping the language tag.
// Applying it to already-normalized text is a no-op.
func NormalizeCodeBlocks(s string) string {
	return fencedBlockRe.ReplaceAllStringFunc(s, func(block string) string {
		sub := fencedBlockRe.FindStringSubmatch(block)
		lang, body := sub[1], sub[2]
		body = strings.TrimPrefix(body, "\n")
		body = strings.TrimSuffix(body, "\n")
		return "```" + lang + "\n" + body + "\n```"
	})
}
