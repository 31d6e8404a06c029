// Package diarization defines the diarization provider interface and common
// types for interacting with speaker-diarization backends.
//
// Speaker labels are opaque backend identifiers (e.g. "SPEAKER_00") with no
// guaranteed numbering or stability across runs; display normalization
// happens in the aligner, not here.
//
// Long recordings are processed in time windows sized by ChunkDuration to
// bound backend memory per invocation; see Windows.
package diarization
