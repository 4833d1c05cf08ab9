package store

import (
	"strings"
	"time"

	"github.com/ehorne/chatvault/src/model"
)

// Collection-specific queries are linear scans over FindAll. Collection
// sizes are bounded by a single export, so no index is kept.

// SearchByName returns conversations whose name contains substr,
// case-insensitive.
func SearchByName(c *Collection[model.Conversation], substr string) []model.Conversation {
	needle := strings.ToLower(substr)
	var out []model.Conversation
	for _, conv := range c.FindAll() {
		if strings.Contains(strings.ToLower(conv.Name), needle) {
			out = append(out, conv)
		}
	}
	return out
}

// FindByDateRange returns conversations whose created_at falls within
// [from, to]. Records with unparseable timestamps are excluded.
func FindByDateRange(c *Collection[model.Conversation], from, to time.Time) []model.Conversation {
	var out []model.Conversation
	for _, conv := range c.FindAll() {
		t, ok := model.ParseTimestamp(conv.CreatedAt)
		if !ok {
			continue
		}
		if t.Before(from) || t.After(to) {
			continue
		}
		out = append(out, conv)
	}
	return out
}

// SearchContent returns conversations where any message body contains term,
// case-insensitive. Both plain text and typed content items are scanned.
func SearchContent(c *Collection[model.Conversation], term string) []model.Conversation {
	needle := strings.ToLower(term)
	var out []model.Conversation
	for _, conv := range c.FindAll() {
		if conversationContains(conv, needle) {
			out = append(out, conv)
		}
	}
	return out
}

func conversationContains(conv model.Conversation, needle string) bool {
	for _, msg := range conv.ChatMessages {
		if strings.Contains(strings.ToLower(msg.PlainText()), needle) {
			return true
		}
	}
	return false
}
