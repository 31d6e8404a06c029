package align

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/kbukum/speakerkit/diarization"
)

// spillChunkSize is how many segments accumulate in memory before a flush
// to the spill store.
const spillChunkSize = 1000

// SpillStore persists intermediate segment batches for interval sets too
// large to hold in memory during alignment.
type SpillStore interface {
	// Append persists a batch of segments after any previous batches.
	Append(batch []diarization.Segment) error
	// Load returns every segment persisted so far, in append order.
	Load() ([]diarization.Segment, error)
	// Close releases the store's resources and deletes persisted data.
	Close() error
}

// SegmentBuffer is a bounded-memory accumulator for diarization segments.
// Below the spill threshold it holds everything in memory; above it,
// batches are flushed to the injected store and reloaded once at read
// time.
type SegmentBuffer struct {
	store    SpillStore
	spilling bool
	mem      []diarization.Segment
	pending  []diarization.Segment
	count    int
}

// NewSegmentBuffer creates a buffer for an interval set of expectedCount
// segments. Spilling engages only when expectedCount exceeds threshold and
// a store is available.
func NewSegmentBuffer(expectedCount, threshold int, store SpillStore) *SegmentBuffer {
	return &SegmentBuffer{
		store:    store,
		spilling: store != nil && expectedCount > threshold,
	}
}

// Spilling reports whether the buffer writes through to its store.
func (b *SegmentBuffer) Spilling() bool { return b.spilling }

// Count returns the number of segments appended so far.
func (b *SegmentBuffer) Count() int { return b.count }

// Append adds one segment, flushing a full pending batch to the store when
// spilling.
func (b *SegmentBuffer) Append(seg diarization.Segment) error {
	b.count++
	if !b.spilling {
		b.mem = append(b.mem, seg)
		return nil
	}
	b.pending = append(b.pending, seg)
	if len(b.pending) >= spillChunkSize {
		return b.flush()
	}
	return nil
}

// Segments returns every appended segment, reloading from the store when
// spilling.
func (b *SegmentBuffer) Segments() ([]diarization.Segment, error) {
	if !b.spilling {
		return b.mem, nil
	}
	if err := b.flush(); err != nil {
		return nil, err
	}
	return b.store.Load()
}

func (b *SegmentBuffer) flush() error {
	if len(b.pending) == 0 {
		return nil
	}
	if err := b.store.Append(b.pending); err != nil {
		return err
	}
	b.pending = nil
	return nil
}

// FileSpillStore is a SpillStore backed by a newline-delimited JSON file
// in a scratch directory. One file per alignment run, removed on Close.
type FileSpillStore struct {
	path string
}

// NewFileSpillStore creates a file-backed spill store under dir.
func NewFileSpillStore(dir string) (*FileSpillStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create spill dir: %w", err)
	}
	return &FileSpillStore{
		path: filepath.Join(dir, fmt.Sprintf("diarization_map_%s.jsonl", uuid.NewString())),
	}, nil
}

// Append writes the batch after any previously persisted segments.
func (s *FileSpillStore) Append(batch []diarization.Segment) error {
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open spill file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, seg := range batch {
		if err := enc.Encode(seg); err != nil {
			return fmt.Errorf("encode spill segment: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush spill file: %w", err)
	}
	return nil
}

// Load reads every persisted segment back from disk.
func (s *FileSpillStore) Load() ([]diarization.Segment, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open spill file: %w", err)
	}
	defer f.Close()

	var segments []diarization.Segment
	dec := json.NewDecoder(bufio.NewReader(f))
	for dec.More() {
		var seg diarization.Segment
		if err := dec.Decode(&seg); err != nil {
			return nil, fmt.Errorf("decode spill segment: %w", err)
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

// Close deletes the spill file.
func (s *FileSpillStore) Close() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
