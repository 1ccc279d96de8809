// Package persist implements the optional space-probe recovery blob from
// spec.md §4.6/§6: a versioned encoding of {next-internal-id,
// map<internal-id, opaque-probe-state>}, written atomically so a crash
// mid-write never corrupts the file a future process depends on to
// recognize its own probes across a restart.
package persist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

const (
	// DefaultRecoveryDir is the directory under $HOME for the recovery blob.
	DefaultRecoveryDir = ".local/state/windowstate"
	// DefaultRecoveryFile is the recovery blob's file name.
	DefaultRecoveryFile = "spaces.json"

	// BlobVersion is the current recovery-blob format version.
	BlobVersion = 1
)

// Blob is the root recovery structure, matching spec.md §6's
// "{next-internal-id, map<internal-id, opaque-probe-state>}".
type Blob struct {
	Version int                        `json:"version"`
	NextID  int                        `json:"nextId"`
	Probes  map[int]json.RawMessage    `json:"probes"`
}

// New returns an empty Blob at the current version.
func New() *Blob {
	return &Blob{Version: BlobVersion, Probes: make(map[int]json.RawMessage)}
}

// GetRecoveryPath returns the default recovery blob path.
func GetRecoveryPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, DefaultRecoveryDir, DefaultRecoveryFile)
}

// Load reads the recovery blob from the default path, returning a fresh
// empty Blob if it does not exist (spec.md §4.6: "if the host does not
// support restore, this step is skipped and ids simply start fresh").
func Load() (*Blob, error) {
	return LoadFrom(GetRecoveryPath())
}

// LoadFrom reads the recovery blob from path.
func LoadFrom(path string) (*Blob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("persist: read recovery blob: %w", err)
	}
	return Decode(data)
}

// Decode parses raw bytes into a Blob, migrating older versions forward.
func Decode(data []byte) (*Blob, error) {
	var b Blob
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("persist: parse recovery blob: %w", err)
	}
	if b.Version < BlobVersion {
		b = *migrate(&b)
	}
	if b.Probes == nil {
		b.Probes = make(map[int]json.RawMessage)
	}
	return &b, nil
}

func migrate(old *Blob) *Blob {
	// No format migrations exist yet; a future bump would transform old's
	// fields here the way internal/state's migrateState does.
	b := New()
	b.NextID = old.NextID
	b.Probes = old.Probes
	return b
}

// Save writes b to the default path.
func (b *Blob) Save() error {
	return b.SaveTo(GetRecoveryPath())
}

// SaveTo atomically writes b to path: an advisory exclusive lock on a
// sibling .lock file serializes concurrent writers, then a
// temp-file-plus-rename swap makes the write itself atomic.
func (b *Blob) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("persist: create recovery dir: %w", err)
	}

	lockPath := path + ".lock"
	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("persist: open lock file: %w", err)
	}
	defer lockFile.Close()

	if err := unix.Flock(int(lockFile.Fd()), unix.LOCK_EX); err != nil {
		return fmt.Errorf("persist: acquire lock: %w", err)
	}
	defer unix.Flock(int(lockFile.Fd()), unix.LOCK_UN)

	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("persist: marshal recovery blob: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("persist: write temp recovery blob: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("persist: rename recovery blob: %w", err)
	}
	return nil
}

// PutProbe encodes v as probe id's opaque state.
func PutProbe[T any](b *Blob, id int, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("persist: encode probe %d: %w", id, err)
	}
	b.Probes[id] = raw
	return nil
}

// GetProbe decodes probe id's opaque state into T, reporting false if id is
// not present.
func GetProbe[T any](b *Blob, id int) (T, bool, error) {
	var zero T
	raw, ok := b.Probes[id]
	if !ok {
		return zero, false, nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, false, fmt.Errorf("persist: decode probe %d: %w", id, err)
	}
	return v, true, nil
}
