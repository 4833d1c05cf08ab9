package syncer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ehorne/chatvault/src/model"
)

func TestDecide(t *testing.T) {
	processed := func(updatedAt string) *model.Conversation {
		return &model.Conversation{UUID: "c1", UpdatedAt: updatedAt, Processed: true}
	}

	tests := []struct {
		name     string
		force    bool
		existing *model.Conversation
		incoming model.Conversation
		want     Decision
	}{
		{
			name:     "missing uuid is invalid",
			incoming: model.Conversation{Name: "no key"},
			want:     Invalid,
		},
		{
			name:     "new record is processed",
			existing: nil,
			incoming: model.Conversation{UUID: "c1", UpdatedAt: "T1"},
			want:     Process,
		},
		{
			name:     "unchanged processed record is skipped",
			existing: processed("T1"),
			incoming: model.Conversation{UUID: "c1", UpdatedAt: "T1"},
			want:     Skip,
		},
		{
			name:     "changed updated_at is processed",
			existing: processed("T1"),
			incoming: model.Conversation{UUID: "c1", UpdatedAt: "T2"},
			want:     Process,
		},
		{
			name:     "unprocessed record is processed again",
			existing: &model.Conversation{UUID: "c1", UpdatedAt: "T1", Processed: false},
			incoming: model.Conversation{UUID: "c1", UpdatedAt: "T1"},
			want:     Process,
		},
		{
			name:     "force overrides skip",
			force:    true,
			existing: processed("T1"),
			incoming: model.Conversation{UUID: "c1", UpdatedAt: "T1"},
			want:     Process,
		},
		{
			name:     "invalid wins over force",
			force:    true,
			incoming: model.Conversation{},
			want:     Invalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.force, tt.existing, tt.incoming)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSortBatch(t *testing.T) {
	batch := []model.Conversation{
		{UUID: "old", UpdatedAt: "2024-06-01T00:00:00Z"},
		{UUID: "new", UpdatedAt: "2025-02-01T00:00:00Z"},
		{UUID: "mid", UpdatedAt: "2024-12-01T00:00:00Z"},
	}
	SortBatch(batch)

	assert.Equal(t, "new", batch[0].UUID)
	assert.Equal(t, "mid", batch[1].UUID)
	assert.Equal(t, "old", batch[2].UUID)
}

func TestSortBatchStable(t *testing.T) {
	batch := []model.Conversation{
		{UUID: "first", UpdatedAt: "2025-01-01T00:00:00Z"},
		{UUID: "second", UpdatedAt: "2025-01-01T00:00:00Z"},
	}
	SortBatch(batch)

	assert.Equal(t, "first", batch[0].UUID)
	assert.Equal(t, "second", batch[1].UUID)
}

func TestNeedsRender(t *testing.T) {
	rendered := model.Conversation{UUID: "c1", Processed: true, MarkdownPath: "/out/doc.md"}

	assert.False(t, NeedsRender(false, rendered))
	assert.True(t, NeedsRender(true, rendered))
	assert.True(t, NeedsRender(false, model.Conversation{UUID: "c1", Processed: true}))
	assert.True(t, NeedsRender(false, model.Conversation{UUID: "c1", MarkdownPath: "/out/doc.md"}))
}
