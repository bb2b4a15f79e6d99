// Package checkpointer implements snapshotting of serializable objects
// during training
package checkpointer

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnknownSnapshotMode is returned when parsing a snapshot mode that
// does not exist
var ErrUnknownSnapshotMode = errors.New("unknown snapshot mode")

// Serializable is an object that can be saved/serialized
type Serializable interface {
	gob.GobEncoder
	gob.GobDecoder
}

// Checkpointer checkpoints/saves serializable objects after
// iterations of training
type Checkpointer interface {
	Checkpoint(itr int) error
}

// SnapshotMode determines which iterations are snapshotted
type SnapshotMode string

const (
	// Last keeps only the most recent snapshot in params.gob
	Last SnapshotMode = "last"

	// All keeps a snapshot of every iteration in itr_<n>.gob
	All SnapshotMode = "all"

	// Gap keeps a snapshot every gap iterations in itr_<n>.gob
	Gap SnapshotMode = "gap"

	// None disables snapshots
	None SnapshotMode = "none"
)

// LastFilename is the name of the file that Last snapshots are saved in
const LastFilename = "params.gob"

// ParseSnapshotMode returns the SnapshotMode named by s
func ParseSnapshotMode(s string) (SnapshotMode, error) {
	mode := SnapshotMode(strings.ToLower(strings.TrimSpace(s)))
	switch mode {
	case Last, All, Gap, None:
		return mode, nil
	}
	return "", fmt.Errorf("parseSnapshotMode: %w %q", ErrUnknownSnapshotMode,
		s)
}

// UnmarshalText implements the encoding.TextUnmarshaler interface
func (s *SnapshotMode) UnmarshalText(text []byte) error {
	mode, err := ParseSnapshotMode(string(text))
	if err != nil {
		return err
	}
	*s = mode
	return nil
}

// New returns a Checkpointer which saves object into dir as described
// by mode. The gap is only used by the Gap mode and must be positive
// for it.
func New(mode SnapshotMode, dir string, object Serializable,
	gap int) (Checkpointer, error) {
	switch mode {
	case None:
		return none{}, nil

	case Last:
		return NewNStep(1, object, func(int) string {
			return filepath.Join(dir, LastFilename)
		}), nil

	case All:
		return NewNStep(1, object, ItrFilename(dir)), nil

	case Gap:
		if gap <= 0 {
			return nil, fmt.Errorf("new: gap must be positive\n\thave(%v)",
				gap)
		}
		return NewNStep(gap, object, ItrFilename(dir)), nil
	}

	return nil, fmt.Errorf("new: %w %q", ErrUnknownSnapshotMode, mode)
}

// ItrFilename returns a function which names the snapshot file of an
// iteration in dir
func ItrFilename(dir string) func(itr int) string {
	return func(itr int) string {
		return filepath.Join(dir, fmt.Sprintf("itr_%d.gob", itr))
	}
}

// Save gob encodes object into the file at path, replacing any
// existing file only once encoding has succeeded
func Save(path string, object Serializable) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("save: %v", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*")
	if err != nil {
		return fmt.Errorf("save: %v", err)
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(object); err != nil {
		tmp.Close()
		return fmt.Errorf("save: could not encode: %v", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save: %v", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save: %v", err)
	}
	return nil
}

// Load decodes the snapshot at path into object
func Load(path string, object Serializable) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("load: %v", err)
	}
	defer f.Close()

	if err := gob.NewDecoder(f).Decode(object); err != nil {
		return fmt.Errorf("load: could not decode %v: %v", path, err)
	}
	return nil
}

// none never checkpoints
type none struct{}

func (none) Checkpoint(int) error {
	return nil
}
