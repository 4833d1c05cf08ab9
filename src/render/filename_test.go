package render

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ehorne/chatvault/src/model"
)

func TestFilename(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		conv model.Conversation
		want string
	}{
		{
			name: "timestamp from created_at and slug from name",
			conv: model.Conversation{
				UUID:      "abc-123",
				Name:      "Test Project!!",
				CreatedAt: "2025-01-01T12:00:00Z",
			},
			want: "20250101_120000_test-project.md",
		},
		{
			name: "uuid fallback when name empty",
			conv: model.Conversation{
				UUID:      "abc-123",
				CreatedAt: "2025-01-01T12:00:00Z",
			},
			want: "20250101_120000_abc-123.md",
		},
		{
			name: "uuid fallback when slug sanitizes to nothing",
			conv: model.Conversation{
				UUID:      "abc-123",
				Name:      "!!!",
				CreatedAt: "2025-01-01T12:00:00Z",
			},
			want: "20250101_120000_abc-123.md",
		},
		{
			name: "current time when created_at absent",
			conv: model.Conversation{UUID: "abc-123", Name: "No Date"},
			want: "20250601_093000_no-date.md",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Filename(tt.conv, now))
		})
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Test Project!!", "test-project"},
		{"Hello, World", "hello-world"},
		{"  spaces  everywhere  ", "spaces-everywhere"},
		{"UPPER case 123", "upper-case-123"},
		{"!!!", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestSlugifyLengthCap(t *testing.T) {
	long := strings.Repeat("word-", 20)
	slug := Slugify(long)
	assert.LessOrEqual(t, len(slug), 50)
	assert.False(t, strings.HasSuffix(slug, "-"))
}
