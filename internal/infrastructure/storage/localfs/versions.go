package localfs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kirillkom/self-healing-rag/internal/core/domain"
)

// TagLayout is the UTC timestamp format used for version tags.
const TagLayout = "20060102T150405"

const manifestName = "manifest.json"

type manifest struct {
	Versions []manifestEntry `json:"versions"`
}

// manifestEntry keeps "ts" as a tag-formatted string so manifests written by
// earlier tooling stay readable. created_at is optional.
type manifestEntry struct {
	Tag       string `json:"tag"`
	IndexFile string `json:"index_file"`
	MetaFile  string `json:"meta_file"`
	TS        string `json:"ts"`
	CreatedAt string `json:"created_at,omitempty"`
}

func (e manifestEntry) createdAt() time.Time {
	if t, err := time.Parse(time.RFC3339Nano, e.CreatedAt); err == nil {
		return t.UTC()
	}
	for _, raw := range []string{e.TS, e.Tag} {
		if t, err := time.ParseInLocation(TagLayout, raw, time.UTC); err == nil {
			return t
		}
	}
	return time.Time{}
}

// VersionManager snapshots index/metadata pairs under dir and keeps an
// append-only manifest of them.
type VersionManager struct {
	dir string
	now func() time.Time
	mu  sync.Mutex
}

func NewVersionManager(dir string) *VersionManager {
	if dir == "" {
		dir = "./data/index_versions"
	}
	return &VersionManager{dir: dir, now: time.Now}
}

// WithClock replaces the tag clock.
func (m *VersionManager) WithClock(now func() time.Time) *VersionManager {
	m.now = now
	return m
}

func (m *VersionManager) ManifestPath() string {
	return filepath.Join(m.dir, manifestName)
}

func (m *VersionManager) SaveVersion(_ context.Context, indexPath, metaPath string) (domain.IndexVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, src := range []string{indexPath, metaPath} {
		if !fileExists(src) {
			return domain.IndexVersion{}, fmt.Errorf("save version: source file %s is missing", src)
		}
	}
	current, err := m.readManifest()
	if err != nil {
		return domain.IndexVersion{}, err
	}

	createdAt := m.now().UTC()
	tag := createdAt.Format(TagLayout)
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return domain.IndexVersion{}, fmt.Errorf("create versions dir: %w", err)
	}
	versionDir := filepath.Join(m.dir, tag)
	if err := os.Mkdir(versionDir, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return domain.IndexVersion{}, domain.WrapError(domain.ErrVersionExists, "save version", fmt.Errorf("tag %s", tag))
		}
		return domain.IndexVersion{}, fmt.Errorf("create version dir: %w", err)
	}

	entry := manifestEntry{
		Tag:       tag,
		IndexFile: filepath.Join(versionDir, filepath.Base(indexPath)),
		MetaFile:  filepath.Join(versionDir, filepath.Base(metaPath)),
		TS:        tag,
		CreatedAt: createdAt.Format(time.RFC3339Nano),
	}
	if err := copyFile(indexPath, entry.IndexFile); err != nil {
		os.RemoveAll(versionDir)
		return domain.IndexVersion{}, fmt.Errorf("copy index file: %w", err)
	}
	if err := copyFile(metaPath, entry.MetaFile); err != nil {
		os.RemoveAll(versionDir)
		return domain.IndexVersion{}, fmt.Errorf("copy metadata file: %w", err)
	}

	current.Versions = append(current.Versions, entry)
	if err := m.writeManifest(current); err != nil {
		return domain.IndexVersion{}, err
	}
	return toVersion(entry), nil
}

// ListVersions returns the manifest in insertion order. It never writes.
func (m *VersionManager) ListVersions(_ context.Context) ([]domain.IndexVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := m.readManifest()
	if err != nil {
		return nil, err
	}
	out := make([]domain.IndexVersion, 0, len(current.Versions))
	for _, entry := range current.Versions {
		out = append(out, toVersion(entry))
	}
	return out, nil
}

// RollbackTo copies the files of the first version tagged tag over the
// destination paths. An unknown tag returns false and touches nothing.
func (m *VersionManager) RollbackTo(_ context.Context, tag, destIndexPath, destMetaPath string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := m.readManifest()
	if err != nil {
		return false, err
	}
	for _, entry := range current.Versions {
		if entry.Tag != tag {
			continue
		}
		if !fileExists(entry.IndexFile) || !fileExists(entry.MetaFile) {
			return false, domain.WrapError(domain.ErrVersionIncomplete, "rollback", fmt.Errorf("tag %s", tag))
		}
		if err := copyFile(entry.IndexFile, destIndexPath); err != nil {
			return false, fmt.Errorf("restore index file: %w", err)
		}
		if err := copyFile(entry.MetaFile, destMetaPath); err != nil {
			return false, fmt.Errorf("restore metadata file: %w", err)
		}
		return true, nil
	}
	return false, nil
}

func (m *VersionManager) readManifest() (manifest, error) {
	data, err := os.ReadFile(m.ManifestPath())
	if err != nil {
		if isNotExist(err) {
			return manifest{}, nil
		}
		return manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	var out manifest
	if err := json.Unmarshal(data, &out); err != nil {
		return manifest{}, domain.WrapError(domain.ErrManifestCorrupt, "read manifest", err)
	}
	return out, nil
}

func (m *VersionManager) writeManifest(value manifest) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := writeFileAtomic(m.ManifestPath(), data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

func toVersion(entry manifestEntry) domain.IndexVersion {
	return domain.IndexVersion{
		Tag:       entry.Tag,
		IndexFile: entry.IndexFile,
		MetaFile:  entry.MetaFile,
		CreatedAt: entry.createdAt(),
		Complete:  fileExists(entry.IndexFile) && fileExists(entry.MetaFile),
	}
}
