package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/ehorne/chatvault/src/model"
)

// SchemaVersion is stamped into the metadata file on every run.
const SchemaVersion = 1

// Collection and metadata file names under the store directory.
const (
	UsersFile         = "users.json"
	ProjectsFile      = "projects.json"
	ConversationsFile = "conversations.json"
	MetadataFile      = "metadata.json"
)

// Store bundles the persisted collections of one export store directory.
// It is explicitly constructed and passed to the pipeline; there is no
// global handle.
type Store struct {
	fs  afero.Fs
	dir string

	Users         *Collection[model.User]
	Projects      *Collection[model.Project]
	Conversations *Collection[model.Conversation]

	meta model.Metadata
}

// Open loads (or initializes) the store under dir.
func Open(fsys afero.Fs, dir string) (*Store, error) {
	s := &Store{fs: fsys, dir: dir}

	var err error
	s.Users, err = OpenCollection(fsys, filepath.Join(dir, UsersFile),
		func(u model.User) string { return u.UUID })
	if err != nil {
		return nil, err
	}
	s.Projects, err = OpenCollection(fsys, filepath.Join(dir, ProjectsFile),
		func(p model.Project) string { return p.UUID })
	if err != nil {
		return nil, err
	}
	s.Conversations, err = OpenCollection(fsys, filepath.Join(dir, ConversationsFile),
		func(c model.Conversation) string { return c.UUID })
	if err != nil {
		return nil, err
	}
	if err := s.loadMetadata(); err != nil {
		return nil, err
	}
	return s, nil
}

// Dir returns the store directory.
func (s *Store) Dir() string {
	return s.dir
}

// Metadata returns the current store metadata.
func (s *Store) Metadata() model.Metadata {
	return s.meta
}

func (s *Store) loadMetadata() error {
	path := filepath.Join(s.dir, MetadataFile)
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			s.meta = model.Metadata{Version: SchemaVersion}
			return nil
		}
		return fmt.Errorf("read metadata: %w", err)
	}
	if err := json.Unmarshal(data, &s.meta); err != nil {
		return fmt.Errorf("parse metadata: %w", err)
	}
	return nil
}

// SaveMetadata persists the metadata record through a temp file and rename.
func (s *Store) SaveMetadata(meta model.Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	path := filepath.Join(s.dir, MetadataFile)
	tmp := path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace metadata: %w", err)
	}
	s.meta = meta
	return nil
}
