package persona

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/kottzoltan/aivio/internal/models"
	"github.com/kottzoltan/aivio/pkg/apperr"
	"github.com/kottzoltan/aivio/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Store persists persona overrides. The backend is selected once at startup;
// there is no runtime probing between backends.
type Store interface {
	Load() (map[string]OverrideRecord, error)
	Save(key string, rec OverrideRecord) error
}

// FileStore keeps all overrides in one local JSON document. Writes are
// serialized and go through a temp-file rename so concurrent writers can't
// corrupt the document.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a file-backed store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load() (map[string]OverrideRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *FileStore) read() (map[string]OverrideRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]OverrideRecord{}, nil
		}
		return nil, apperr.Storage("override read", err)
	}
	if len(data) == 0 {
		return map[string]OverrideRecord{}, nil
	}

	var overrides map[string]OverrideRecord
	if err := json.Unmarshal(data, &overrides); err != nil {
		return nil, apperr.Storage("override decode", err)
	}
	return overrides, nil
}

func (s *FileStore) Save(key string, rec OverrideRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	overrides, err := s.read()
	if err != nil {
		overrides = map[string]OverrideRecord{}
	}
	overrides[key] = rec

	data, err := json.MarshalIndent(overrides, "", "  ")
	if err != nil {
		return apperr.Storage("override encode", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return apperr.Storage("override mkdir", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return apperr.Storage("override write", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return apperr.Storage("override rename", err)
	}
	return nil
}

// DBStore keeps overrides as rows in the configured database. When the
// database has no overrides yet but a local file does, the file content
// seeds the database; when the database fails, reads and writes fall back to
// the file so the caller never blocks on the remote side.
type DBStore struct {
	db       *gorm.DB
	fallback *FileStore
}

// NewDBStore creates a database-backed store with an optional file fallback.
func NewDBStore(db *gorm.DB, fallback *FileStore) *DBStore {
	return &DBStore{db: db, fallback: fallback}
}

func (s *DBStore) Load() (map[string]OverrideRecord, error) {
	rows, err := models.ListPersonaOverrides(s.db)
	if err != nil {
		if s.fallback != nil {
			logger.Warn("override db load failed, falling back to file", zap.Error(err))
			return s.fallback.Load()
		}
		return nil, apperr.Storage("override db load", err)
	}

	if len(rows) == 0 && s.fallback != nil {
		// Empty database means "no remote overrides yet"; seed it from the
		// local file when one exists.
		fromFile, ferr := s.fallback.Load()
		if ferr == nil && len(fromFile) > 0 {
			for key, rec := range fromFile {
				if err := s.saveRow(key, rec); err != nil {
					logger.Warn("failed to seed override into db", zap.String("key", key), zap.Error(err))
				}
			}
			return fromFile, nil
		}
	}

	overrides := make(map[string]OverrideRecord, len(rows))
	for _, row := range rows {
		overrides[row.Key] = OverrideRecord{
			Title:       row.Title,
			Intro:       row.Intro,
			Instruction: row.Instruction,
			Style:       row.Style,
			Script:      row.Script,
			Knowledge:   row.Knowledge,
			UpdatedAt:   row.UpdatedAt,
		}
	}
	return overrides, nil
}

func (s *DBStore) Save(key string, rec OverrideRecord) error {
	if err := s.saveRow(key, rec); err != nil {
		if s.fallback != nil {
			logger.Warn("override db save failed, falling back to file",
				zap.String("key", key), zap.Error(err))
			return s.fallback.Save(key, rec)
		}
		return err
	}
	return nil
}

func (s *DBStore) saveRow(key string, rec OverrideRecord) error {
	row := &models.PersonaOverride{
		Key:         key,
		Title:       rec.Title,
		Intro:       rec.Intro,
		Instruction: rec.Instruction,
		Style:       rec.Style,
		Script:      rec.Script,
		Knowledge:   rec.Knowledge,
	}
	if err := models.UpsertPersonaOverride(s.db, row); err != nil {
		return apperr.Storage(fmt.Sprintf("override db save %s", key), err)
	}
	return nil
}
