// Package snapshot persists point-in-time images of the resting books
// so restarts replay only the log tail instead of the full history.
package snapshot

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/shopspring/decimal"
)

// OrderEntry is one resting order in flattened form. Enum fields are
// stored as their wire integers to keep the gob schema stable.
type OrderEntry struct {
	ID       uint64
	ClientID string
	PoolID   string
	Symbol   string
	Side     uint8

	Price   decimal.Decimal
	Qty     decimal.Decimal
	MinFill decimal.Decimal
	Filled  decimal.Decimal

	Iceberg    bool
	DisplayQty decimal.Decimal

	Status    uint8
	SeqID     uint64
	CreatedAt int64
	UpdatedAt int64
}

type Snapshot struct {
	// Seq is the sequence boundary: every command with id at or below
	// Seq is reflected in Orders.
	Seq       uint64
	CreatedAt int64
	Orders    []OrderEntry
}

func fileFor(dir string, seq uint64) string {
	return filepath.Join(dir, fmt.Sprintf("snapshot-%020d.snap", seq))
}

// Write persists the snapshot atomically: a temp file is fully written
// and synced before being renamed into place.
func Write(dir string, snap *Snapshot) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "snapshot-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(snap); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), fileFor(dir, snap.Seq))
}

// LoadLatest reads the highest-seq snapshot in dir, or returns nil when
// none exists.
func LoadLatest(dir string) (*Snapshot, error) {
	files, err := filepath.Glob(filepath.Join(dir, "snapshot-*.snap"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}
	sort.Strings(files)
	path := files[len(files)-1]

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var snap Snapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return nil, fmt.Errorf("snapshot: decode %s: %w", path, err)
	}
	return &snap, nil
}

// Prune removes every snapshot older than the one at keepSeq.
func Prune(dir string, keepSeq uint64) error {
	files, err := filepath.Glob(filepath.Join(dir, "snapshot-*.snap"))
	if err != nil {
		return err
	}
	keep := fileFor(dir, keepSeq)
	for _, path := range files {
		if path == keep {
			continue
		}
		_ = os.Remove(path)
	}
	return nil
}
