package diarization

import "time"

// ShortFileThreshold is the duration below which a recording is processed
// as a single unit with UltraFastTuning instead of being chunked.
const ShortFileThreshold = 5 * time.Minute

// Chunk-size tiers. Longer recordings get smaller windows so the backend's
// peak memory stays bounded while per-chunk overhead stays amortized.
const (
	chunkShort    = 600 * time.Second // <= 30 min
	chunkMedium   = 450 * time.Second // <= 1 h
	chunkLong     = 300 * time.Second // <= 1.5 h
	chunkVeryLong = 240 * time.Second // <= 3 h
	chunkExtreme  = 180 * time.Second // > 3 h
)

// ChunkDuration returns the processing window size for a recording of the
// given total duration. Chunk size decreases monotonically as duration
// grows.
func ChunkDuration(total time.Duration) time.Duration {
	switch {
	case total <= 30*time.Minute:
		return chunkShort
	case total <= time.Hour:
		return chunkMedium
	case total <= 90*time.Minute:
		return chunkLong
	case total <= 3*time.Hour:
		return chunkVeryLong
	default:
		return chunkExtreme
	}
}

// UltraFastTuning returns the aggressive parameter set used for recordings
// under ShortFileThreshold: shorter speech/silence minimums, centroid
// clustering with smaller clusters, and larger batches.
func UltraFastTuning() Tuning {
	return Tuning{
		MinDurationOn:         0.25,
		MinDurationOff:        0.25,
		MinClusterSize:        6,
		ClusteringMethod:      "centroid",
		SegmentationBatchSize: 32,
		EmbeddingBatchSize:    32,
	}
}

// Window is one processing window within a longer recording.
type Window struct {
	// Start and End are offsets into the recording, in seconds.
	Start float64
	End   float64
}

// Windows partitions a recording of the given total duration into
// consecutive windows of at most chunk length. Recordings at or under
// ShortFileThreshold yield a single whole-file window.
func Windows(total, chunk time.Duration) []Window {
	totalSec := total.Seconds()
	if total < ShortFileThreshold || chunk <= 0 {
		return []Window{{Start: 0, End: totalSec}}
	}
	chunkSec := chunk.Seconds()
	var windows []Window
	for start := 0.0; start < totalSec; start += chunkSec {
		end := start + chunkSec
		if end > totalSec {
			end = totalSec
		}
		windows = append(windows, Window{Start: start, End: end})
	}
	return windows
}
