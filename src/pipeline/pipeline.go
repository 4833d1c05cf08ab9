// Package pipeline sequences archive extraction, record sync, and document
// rendering for one export run.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/ehorne/chatvault/src/archive"
	"github.com/ehorne/chatvault/src/model"
	"github.com/ehorne/chatvault/src/render"
	"github.com/ehorne/chatvault/src/store"
	"github.com/ehorne/chatvault/src/stream"
	"github.com/ehorne/chatvault/src/syncer"
)

// Stage names the linear pipeline states. There is no backtracking: any
// stage failure transitions to StageFailed and already-written state stays.
type Stage string

const (
	StagePending            Stage = "pending"
	StageExtract            Stage = "extract"
	StageStoreUsersProjects Stage = "store-users-projects"
	StageSyncConversations  Stage = "sync-conversations"
	StageRenderDocuments    Stage = "render-documents"
	StageDone               Stage = "done"
	StageFailed             Stage = "failed"
)

// Options configures a single pipeline run.
type Options struct {
	ArchivePath string
	OutputDir   string
	Force       bool
}

// Result carries the aggregate counts reported at the end of a run.
type Result struct {
	Conversations int
	Processed     int
	Skipped       int
	Invalid       int
	Users         int
	Projects      int
	Rendered      int
	RenderFailed  int
}

// Pipeline drives one run. All collaborators are constructed by the caller
// and passed in; the pipeline owns no global state.
type Pipeline struct {
	fs       afero.Fs
	store    *store.Store
	renderer *render.Renderer
	logger   *slog.Logger
	opts     Options

	stage   Stage
	scratch string
}

// New builds a pipeline over the given store and renderer. Log lines from
// one run share a short run id so interleaved output stays attributable.
func New(fsys afero.Fs, st *store.Store, r *render.Renderer, logger *slog.Logger, opts Options) *Pipeline {
	return &Pipeline{
		fs:       fsys,
		store:    st,
		renderer: r,
		logger:   logger.With("run", uuid.NewString()[:8]),
		opts:     opts,
		stage:    StagePending,
	}
}

// Stage returns the current pipeline stage.
func (p *Pipeline) Stage() Stage {
	return p.stage
}

// Run executes Extract, StoreUsersProjects, SyncConversations, and
// RenderDocuments in order. Cancellation is honored between stages only;
// the result carries whatever counts accumulated before a failure.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	res := &Result{}
	stages := []struct {
		stage Stage
		fn    func(*Result) error
	}{
		{StageExtract, p.runExtract},
		{StageStoreUsersProjects, p.runStoreUsersProjects},
		{StageSyncConversations, p.runSyncConversations},
		{StageRenderDocuments, p.runRenderDocuments},
	}
	defer p.cleanup()

	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			p.stage = StageFailed
			return res, err
		}
		p.stage = s.stage
		p.logger.Debug("pipeline stage", "stage", string(s.stage))
		if err := s.fn(res); err != nil {
			p.stage = StageFailed
			return res, fmt.Errorf("%s: %w", s.stage, err)
		}
	}

	if err := p.saveMetadata(res); err != nil {
		p.stage = StageFailed
		return res, err
	}
	p.stage = StageDone
	return res, nil
}

func (p *Pipeline) cleanup() {
	if p.scratch != "" {
		if err := p.fs.RemoveAll(p.scratch); err != nil {
			p.logger.Warn("removing scratch directory", "dir", p.scratch, "error", err)
		}
		p.scratch = ""
	}
}

func (p *Pipeline) runExtract(*Result) error {
	ar, err := archive.Open(p.opts.ArchivePath)
	if err != nil {
		return err
	}
	defer ar.Close()

	if _, err := ar.RequireEntry(archive.ConversationsFile); err != nil {
		return err
	}

	scratch, err := afero.TempDir(p.fs, "", "chatvault-extract-")
	if err != nil {
		return fmt.Errorf("create scratch directory: %w", err)
	}
	p.scratch = scratch

	p.logger.Info("extracting archive", "archive", p.opts.ArchivePath, "entries", len(ar.Entries()))
	return ar.ExtractAll(p.fs, scratch)
}

func (p *Pipeline) runStoreUsersProjects(res *Result) error {
	users := decodeOptional[model.User](p, archive.UsersFile)
	for _, u := range users {
		if u.UUID == "" {
			p.logger.Warn("skipping user without uuid")
			continue
		}
		if err := p.store.Users.Upsert(u); err != nil {
			return err
		}
		res.Users++
	}

	projects := decodeOptional[model.Project](p, archive.ProjectsFile)
	for _, pr := range projects {
		if pr.UUID == "" {
			p.logger.Warn("skipping project without uuid")
			continue
		}
		if err := p.store.Projects.Upsert(pr); err != nil {
			return err
		}
		res.Projects++
	}
	return nil
}

// decodeOptional reads a small optional collection from the extracted
// archive. Absence or malformed content degrades to an empty collection.
func decodeOptional[T any](p *Pipeline, fragment string) []T {
	path, ok := p.findExtracted(fragment)
	if !ok {
		p.logger.Debug("optional collection not present", "file", fragment)
		return nil
	}
	data, err := afero.ReadFile(p.fs, path)
	if err != nil {
		p.logger.Warn("reading optional collection", "file", fragment, "error", err)
		return nil
	}
	records, err := stream.DecodeCollection[T](data)
	if err != nil {
		p.logger.Warn("optional collection ignored", "file", fragment, "error", err)
		return nil
	}
	return records
}

// findExtracted locates an extracted entry by name fragment, tolerating
// nested path prefixes inside the archive.
func (p *Pipeline) findExtracted(fragment string) (string, bool) {
	var found string
	_ = afero.Walk(p.fs, p.scratch, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() || found != "" {
			return nil
		}
		if strings.Contains(filepath.Base(path), fragment) {
			found = path
		}
		return nil
	})
	return found, found != ""
}

func (p *Pipeline) runSyncConversations(res *Result) error {
	path, ok := p.findExtracted(archive.ConversationsFile)
	if !ok {
		return fmt.Errorf("Missing %s: %w", archive.ConversationsFile, archive.ErrMissingRequiredFile)
	}
	f, err := p.fs.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	dec := stream.NewArrayDecoder(f)
	dec.OnProgress(stream.DefaultProgressInterval, func(n int) {
		p.logger.Info("decoding conversations", "decoded", n)
	})

	var batch []model.Conversation
	for dec.Next() {
		var c model.Conversation
		if err := dec.Record(&c); err != nil {
			return err
		}
		batch = append(batch, c)
	}
	if err := dec.Err(); err != nil {
		return err
	}

	syncer.SortBatch(batch)

	for _, c := range batch {
		res.Conversations++
		var existing *model.Conversation
		if e, ok := p.store.Conversations.FindByKey(c.UUID); ok {
			existing = &e
		}
		switch syncer.Decide(p.opts.Force, existing, c) {
		case syncer.Invalid:
			p.logger.Warn("skipping conversation without uuid", "name", c.Name)
			res.Invalid++
		case syncer.Skip:
			p.logger.Debug("conversation up to date", "uuid", c.UUID)
			res.Skipped++
		case syncer.Process:
			if err := p.store.Conversations.Upsert(c); err != nil {
				return err
			}
			res.Processed++
		}
	}
	return nil
}

func (p *Pipeline) runRenderDocuments(res *Result) error {
	if err := p.fs.MkdirAll(p.opts.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	for _, c := range p.store.Conversations.FindAll() {
		if !syncer.NeedsRender(p.opts.Force, c) {
			continue
		}
		doc, err := p.renderer.Render(c)
		if err != nil {
			p.logger.Error("render failed", "uuid", c.UUID, "error", err)
			res.RenderFailed++
			continue
		}
		name := render.Filename(c, p.renderer.Now())
		path := filepath.Join(p.opts.OutputDir, name)
		if err := afero.WriteFile(p.fs, path, []byte(doc), 0o644); err != nil {
			return fmt.Errorf("write document %s: %w", path, err)
		}
		if _, _, err := p.store.Conversations.Update(c.UUID, map[string]any{
			"processed":    true,
			"markdownPath": path,
		}); err != nil {
			return err
		}
		res.Rendered++
	}
	return nil
}

func (p *Pipeline) saveMetadata(res *Result) error {
	meta := p.store.Metadata()
	meta.LastProcessed = p.renderer.Now().UTC().Format(time.RFC3339)
	meta.Version = store.SchemaVersion
	meta.Stats = map[string]int{
		"users":         p.store.Users.Count(),
		"projects":      p.store.Projects.Count(),
		"conversations": p.store.Conversations.Count(),
		"processed":     res.Processed,
		"skipped":       res.Skipped,
		"invalid":       res.Invalid,
		"rendered":      res.Rendered,
		"renderFailed":  res.RenderFailed,
	}
	return p.store.SaveMetadata(meta)
}
