package views

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	lserrors "github.com/matzehuels/linkscope/pkg/errors"
)

// FileRepository stores each view as <dir>/<id>.json.
type FileRepository struct {
	mu      sync.RWMutex
	baseDir string
}

// NewFileRepository creates a file repository.
// If baseDir is empty, defaults to ~/.local/share/linkscope/views/.
func NewFileRepository(baseDir string) (*FileRepository, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		baseDir = filepath.Join(home, ".local", "share", "linkscope", "views")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create view dir: %w", err)
	}
	return &FileRepository{baseDir: baseDir}, nil
}

func (r *FileRepository) viewPath(id string) string {
	return filepath.Join(r.baseDir, id+".json")
}

func (r *FileRepository) Create(ctx context.Context, rec Record) (string, error) {
	rec.ID = uuid.NewString()
	rec.CreatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal view: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := os.WriteFile(r.viewPath(rec.ID), data, 0o644); err != nil {
		return "", fmt.Errorf("write view file: %w", err)
	}
	return rec.ID, nil
}

func (r *FileRepository) Get(ctx context.Context, id string) (Record, error) {
	if err := lserrors.ValidateViewID(id); err != nil {
		return Record{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	data, err := os.ReadFile(r.viewPath(id))
	if os.IsNotExist(err) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("read view file: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, lserrors.Wrap(lserrors.ErrCodeMalformedData, err, "parse view %s", id)
	}
	rec.ID = id
	return rec, nil
}

// List reads the summary fields of every view file. Unreadable files are
// skipped.
func (r *FileRepository) List(ctx context.Context) ([]Summary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries, err := os.ReadDir(r.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read view dir: %w", err)
	}
	out := make([]Summary, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(r.baseDir, entry.Name()))
		if err != nil {
			continue
		}
		var s Summary
		if err := json.Unmarshal(data, &s); err != nil || s.ID == "" {
			continue
		}
		out = append(out, s)
	}
	sortSummaries(out)
	return out, nil
}

// Path returns the directory holding the view files.
func (r *FileRepository) Path() string { return r.baseDir }

var _ Repository = (*FileRepository)(nil)
