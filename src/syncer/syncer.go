// Package syncer decides which incoming export records need processing and
// which can be skipped because persisted state is already current.
package syncer

import (
	"sort"

	"github.com/ehorne/chatvault/src/model"
)

// Decision is the outcome of comparing an incoming conversation against
// its persisted counterpart.
type Decision int

const (
	// Skip means the persisted record is current; nothing to do.
	Skip Decision = iota
	// Process means the record is new, changed, or a reprocess was forced.
	Process
	// Invalid means the record cannot be keyed (no uuid) and must never
	// be persisted.
	Invalid
)

func (d Decision) String() string {
	switch d {
	case Skip:
		return "skip"
	case Process:
		return "process"
	case Invalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Decide is a pure function of (force, existing, incoming). existing is nil
// when no persisted record exists for the incoming uuid.
func Decide(force bool, existing *model.Conversation, incoming model.Conversation) Decision {
	if incoming.UUID == "" {
		return Invalid
	}
	if force || existing == nil || !existing.Processed || existing.UpdatedAt != incoming.UpdatedAt {
		return Process
	}
	return Skip
}

// SortBatch orders conversations by updated_at descending so the most
// recently touched conversations are evaluated first. Only processing order
// and log output depend on this; each decision is independent per uuid.
// ISO-8601 timestamps compare correctly as strings.
func SortBatch(convs []model.Conversation) {
	sort.SliceStable(convs, func(i, j int) bool {
		return convs[i].UpdatedAt > convs[j].UpdatedAt
	})
}

// NeedsRender reports whether a stored conversation still needs its
// document generated. Ingestion always writes before rendering is
// considered, so skipping here only ever avoids redundant re-rendering.
func NeedsRender(force bool, c model.Conversation) bool {
	return force || !c.Processed || c.MarkdownPath == ""
}
