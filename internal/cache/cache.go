// Package cache persists sweep results between runs. Each entry is a
// gzip-compressed gob stream holding a metadata header followed by the
// results table and evaluation grid.
package cache

import (
	"compress/gzip"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/san-kum/capsim/internal/compare"
)

// Cache names used by the two analyses.
const (
	NameComparison  = "capacitance_data"
	NameConvergence = "capacitance_convergence_study"
)

const ext = ".gob.gz"

var (
	ErrNotFound = errors.New("cache: entry not found")
	ErrStale    = errors.New("cache: fingerprint mismatch")
	ErrCorrupt  = errors.New("cache: corrupt entry")
)

// Meta identifies a cache entry.
type Meta struct {
	ID          uuid.UUID
	Name        string
	CreatedAt   time.Time
	Fingerprint string
}

// Entry is the persisted form of one sweep.
type Entry struct {
	Meta  Meta
	Table compare.Table
	Grid  []float64
}

type payload struct {
	Table compare.Table
	Grid  []float64
}

// Store reads and writes cache entries in one directory.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	if baseDir == "" {
		baseDir = "."
	}
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

// Path returns the file backing the named entry.
func (s *Store) Path(name string) string {
	return filepath.Join(s.baseDir, name+ext)
}

// Save writes the table and grid under name, replacing any previous entry
// atomically, and returns the file path.
func (s *Store) Save(name string, table compare.Table, grid []float64, fingerprint string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("cache: invalid entry name %q", name)
	}
	if err := s.Init(); err != nil {
		return "", pkgerrors.Wrap(err, "create cache directory")
	}

	meta := Meta{
		ID:          uuid.New(),
		Name:        name,
		CreatedAt:   time.Now().UTC(),
		Fingerprint: fingerprint,
	}

	tmp, err := os.CreateTemp(s.baseDir, "."+name+"-*.tmp")
	if err != nil {
		return "", pkgerrors.Wrap(err, "create temp file")
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := encode(tmp, meta, payload{Table: table, Grid: grid}); err != nil {
		tmp.Close()
		return "", pkgerrors.Wrapf(err, "encode %s", name)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	path := s.Path(name)
	if err := os.Rename(tmpPath, path); err != nil {
		return "", pkgerrors.Wrapf(err, "replace %s", path)
	}

	logrus.WithFields(logrus.Fields{
		"path":        path,
		"id":          meta.ID,
		"fingerprint": fingerprint,
		"params":      len(table),
	}).Info("saved cache entry")
	return path, nil
}

// Load reads the named entry. A non-empty fingerprint must match the one
// stored at save time.
func (s *Store) Load(name, fingerprint string) (*Entry, error) {
	path := s.Path(name)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return nil, err
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	defer zr.Close()
	dec := gob.NewDecoder(zr)

	var meta Meta
	if err := dec.Decode(&meta); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	if fingerprint != "" && meta.Fingerprint != fingerprint {
		return nil, fmt.Errorf("%w: %s was written for %s, want %s (rerun with --compute)",
			ErrStale, path, meta.Fingerprint, fingerprint)
	}

	var p payload
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}

	logrus.WithFields(logrus.Fields{
		"path":    path,
		"id":      meta.ID,
		"created": meta.CreatedAt.Format(time.RFC3339),
	}).Info("loaded cache entry")
	return &Entry{Meta: meta, Table: p.Table, Grid: p.Grid}, nil
}

// List returns the metadata of every entry in the directory, oldest
// first. A missing directory holds no entries.
func (s *Store) List() ([]Meta, error) {
	files, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Meta{}, nil
		}
		return nil, err
	}

	metas := make([]Meta, 0)
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ext) {
			continue
		}
		meta, err := readMeta(filepath.Join(s.baseDir, file.Name()))
		if err != nil {
			logrus.WithError(err).WithField("file", file.Name()).Warn("skipping unreadable cache file")
			continue
		}
		metas = append(metas, meta)
	}

	sort.Slice(metas, func(i, j int) bool {
		if metas[i].CreatedAt.Equal(metas[j].CreatedAt) {
			return metas[i].Name < metas[j].Name
		}
		return metas[i].CreatedAt.Before(metas[j].CreatedAt)
	})
	return metas, nil
}

// Fingerprint hashes the JSON encoding of parts: the hex of the first 16
// bytes of its SHA-256.
func Fingerprint(parts ...any) (string, error) {
	data, err := json.Marshal(parts)
	if err != nil {
		return "", pkgerrors.Wrap(err, "fingerprint")
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:16]), nil
}

func encode(w io.Writer, meta Meta, p payload) error {
	zw := gzip.NewWriter(w)
	enc := gob.NewEncoder(zw)
	if err := enc.Encode(meta); err != nil {
		zw.Close()
		return err
	}
	if err := enc.Encode(p); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

func readMeta(path string) (Meta, error) {
	var meta Meta
	f, err := os.Open(path)
	if err != nil {
		return meta, err
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return meta, err
	}
	defer zr.Close()
	err = gob.NewDecoder(zr).Decode(&meta)
	return meta, err
}
