package pipeline

import (
	"archive/zip"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehorne/chatvault/src/archive"
	"github.com/ehorne/chatvault/src/render"
	"github.com/ehorne/chatvault/src/store"
)

const conversationsFixture = `[
	{
		"uuid": "c1",
		"name": "First chat",
		"created_at": "2025-01-01T12:00:00Z",
		"updated_at": "2025-01-02T08:00:00Z",
		"chat_messages": [
			{"uuid": "m1", "sender": "human", "text": "Hello, Claude!"},
			{"uuid": "m2", "sender": "assistant", "text": "Hello! How can I help you today?"}
		]
	},
	{
		"uuid": "c2",
		"name": "Second chat",
		"created_at": "2025-02-01T09:00:00Z",
		"updated_at": "2025-02-01T09:30:00Z",
		"chat_messages": [
			{"uuid": "m3", "sender": "human", "text": "ping"}
		]
	},
	{
		"name": "no uuid, must be skipped",
		"updated_at": "2025-03-01T00:00:00Z"
	}
]`

func writeArchive(t *testing.T, dir string, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(dir, "export.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = io.WriteString(w, content)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedRenderer() *render.Renderer {
	r := render.New()
	r.Now = func() time.Time {
		return time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	}
	return r
}

func newRun(t *testing.T, archivePath string, force bool) (*Pipeline, *store.Store, string) {
	t.Helper()
	fsys := afero.NewOsFs()
	base := t.TempDir()
	storeDir := filepath.Join(base, "store")
	outDir := filepath.Join(base, "output")

	st, err := store.Open(fsys, storeDir)
	require.NoError(t, err)

	p := New(fsys, st, fixedRenderer(), testLogger(), Options{
		ArchivePath: archivePath,
		OutputDir:   outDir,
		Force:       force,
	})
	return p, st, outDir
}

func reopenRun(t *testing.T, storeDir, outDir, archivePath string, force bool) (*Pipeline, *store.Store) {
	t.Helper()
	fsys := afero.NewOsFs()
	st, err := store.Open(fsys, storeDir)
	require.NoError(t, err)
	p := New(fsys, st, fixedRenderer(), testLogger(), Options{
		ArchivePath: archivePath,
		OutputDir:   outDir,
		Force:       force,
	})
	return p, st
}

func TestRunConversationsOnlyArchive(t *testing.T) {
	archivePath := writeArchive(t, t.TempDir(), map[string]string{
		"export/conversations.json": conversationsFixture,
	})
	p, st, outDir := newRun(t, archivePath, false)

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StageDone, p.Stage())

	assert.Equal(t, 3, res.Conversations)
	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, 1, res.Invalid)
	assert.Equal(t, 0, res.Skipped)
	assert.Equal(t, 2, res.Rendered)
	assert.Equal(t, 0, res.Users)
	assert.Equal(t, 0, res.Projects)

	assert.Equal(t, 2, st.Conversations.Count())
	assert.Equal(t, 0, st.Users.Count())
	assert.Equal(t, 0, st.Projects.Count())

	// Both conversations are marked processed with a document path.
	c1, ok := st.Conversations.FindByKey("c1")
	require.True(t, ok)
	assert.True(t, c1.Processed)
	require.NotEmpty(t, c1.MarkdownPath)

	doc, err := os.ReadFile(c1.MarkdownPath)
	require.NoError(t, err)
	assert.Contains(t, string(doc), "# First chat")
	assert.Contains(t, string(doc), "Hello, Claude!")

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	meta := st.Metadata()
	assert.NotEmpty(t, meta.LastProcessed)
	assert.Equal(t, 2, meta.Stats["conversations"])
	assert.Equal(t, 1, meta.Stats["invalid"])
}

func TestRunMissingConversationsFails(t *testing.T) {
	archivePath := writeArchive(t, t.TempDir(), map[string]string{
		"users.json": "[]",
	})
	p, st, _ := newRun(t, archivePath, false)

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, archive.ErrMissingRequiredFile)
	assert.Contains(t, err.Error(), "conversations.json")
	assert.Equal(t, StageFailed, p.Stage())
	assert.Equal(t, 0, st.Conversations.Count())
}

func TestRunWithOptionalCollections(t *testing.T) {
	archivePath := writeArchive(t, t.TempDir(), map[string]string{
		"conversations.json": conversationsFixture,
		"users.json":         `[{"uuid":"u1","full_name":"Ada Lovelace","email_address":"ada@example.com"}]`,
		"projects.json":      `[{"uuid":"p1","name":"Engine","creator":{"uuid":"u1"}}]`,
	})
	p, st, _ := newRun(t, archivePath, false)

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Users)
	assert.Equal(t, 1, res.Projects)
	assert.Equal(t, 1, st.Users.Count())
	assert.Equal(t, 1, st.Projects.Count())
}

func TestRunMalformedOptionalCollectionDegrades(t *testing.T) {
	archivePath := writeArchive(t, t.TempDir(), map[string]string{
		"conversations.json": conversationsFixture,
		"users.json":         `{"not": "an array"}`,
	})
	p, st, _ := newRun(t, archivePath, false)

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Users)
	assert.Equal(t, 0, st.Users.Count())
}

func TestRunMalformedConversationsFails(t *testing.T) {
	archivePath := writeArchive(t, t.TempDir(), map[string]string{
		"conversations.json": `[{"uuid":"c1"},{`,
	})
	p, _, _ := newRun(t, archivePath, false)

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, StageFailed, p.Stage())
}

func TestSecondRunSkipsUnchanged(t *testing.T) {
	dir := t.TempDir()
	archivePath := writeArchive(t, dir, map[string]string{
		"conversations.json": conversationsFixture,
	})
	p, st, outDir := newRun(t, archivePath, false)
	_, err := p.Run(context.Background())
	require.NoError(t, err)

	p2, _ := reopenRun(t, st.Dir(), outDir, archivePath, false)
	res, err := p2.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, res.Processed)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, 0, res.Rendered)
}

func TestForceReprocessesEverything(t *testing.T) {
	dir := t.TempDir()
	archivePath := writeArchive(t, dir, map[string]string{
		"conversations.json": conversationsFixture,
	})
	p, st, outDir := newRun(t, archivePath, false)
	_, err := p.Run(context.Background())
	require.NoError(t, err)

	p2, _ := reopenRun(t, st.Dir(), outDir, archivePath, true)
	res, err := p2.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, 0, res.Skipped)
	assert.Equal(t, 2, res.Rendered)
}

func TestCancelledContextStopsBetweenStages(t *testing.T) {
	archivePath := writeArchive(t, t.TempDir(), map[string]string{
		"conversations.json": conversationsFixture,
	})
	p, _, _ := newRun(t, archivePath, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StageFailed, p.Stage())
}
