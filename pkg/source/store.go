package source

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/matzehuels/sentichart/pkg/errors"
)

// Key identifies a stored simulation run.
type Key struct {
	Ticker string `json:"ticker" bson:"ticker"`
	Start  string `json:"start,omitempty" bson:"start"`
	End    string `json:"end,omitempty" bson:"end"`
}

// ID returns the stable identifier of k, e.g. "AAPL_2025-10-01_2025-11-12".
// Empty dates are omitted.
func (k Key) ID() string {
	parts := []string{k.Ticker}
	if k.Start != "" || k.End != "" {
		parts = append(parts, k.Start, k.End)
	}
	return strings.Join(parts, "_")
}

// ParseKeyID reverses Key.ID.
func ParseKeyID(id string) Key {
	parts := strings.Split(id, "_")
	k := Key{Ticker: parts[0]}
	if len(parts) == 3 {
		k.Start, k.End = parts[1], parts[2]
	}
	return k
}

// Entry describes a stored response.
type Entry struct {
	Key       Key
	Path      string
	UpdatedAt time.Time
}

// Store persists raw backend responses.
type Store interface {
	Save(ctx context.Context, key Key, raw []byte) error
	// Load returns the stored response and true, or false when none exists.
	Load(ctx context.Context, key Key) ([]byte, bool, error)
	// List returns stored entries, newest first.
	List(ctx context.Context) ([]Entry, error)
	Close() error
}

// DirStore keeps one JSON file per key in a directory.
type DirStore struct {
	dir string
}

// NewDirStore creates the directory if needed.
func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DirStore{dir: dir}, nil
}

// Path returns the file a key is stored in.
func (s *DirStore) Path(key Key) string {
	return filepath.Join(s.dir, key.ID()+".json")
}

func (s *DirStore) Save(_ context.Context, key Key, raw []byte) error {
	if err := errors.ValidateTicker(key.Ticker); err != nil {
		return err
	}
	path := s.Path(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *DirStore) Load(_ context.Context, key Key) ([]byte, bool, error) {
	data, err := os.ReadFile(s.Path(key))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// List returns every *.json file in the directory. Files whose names are not
// key IDs are listed with the bare file name as ticker.
func (s *DirStore) List(_ context.Context) ([]Entry, error) {
	files, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	for _, f := range files {
		name := f.Name()
		if f.IsDir() || filepath.Ext(name) != ".json" || strings.HasSuffix(name, ".layout.json") {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Key:       ParseKeyID(strings.TrimSuffix(name, ".json")),
			Path:      filepath.Join(s.dir, name),
			UpdatedAt: info.ModTime(),
		})
	}
	slices.SortFunc(entries, func(a, b Entry) int { return b.UpdatedAt.Compare(a.UpdatedAt) })
	return entries, nil
}

func (s *DirStore) Close() error { return nil }

var _ Store = (*DirStore)(nil)
