package diarization

// Tuning holds backend pipeline parameters. The zero value leaves every
// knob at the backend default.
type Tuning struct {
	// MinDurationOn is the minimum speech duration in seconds.
	MinDurationOn float64 `json:"min_duration_on,omitempty"`
	// MinDurationOff is the minimum silence duration in seconds.
	MinDurationOff float64 `json:"min_duration_off,omitempty"`
	// MinClusterSize is the minimum samples required to form a speaker cluster.
	MinClusterSize int `json:"min_cluster_size,omitempty"`
	// ClusteringMethod selects the linkage method (e.g. "centroid").
	ClusteringMethod string `json:"clustering_method,omitempty"`
	// SegmentationBatchSize is the segmentation model batch size.
	SegmentationBatchSize int `json:"segmentation_batch_size,omitempty"`
	// EmbeddingBatchSize is the embedding model batch size.
	EmbeddingBatchSize int `json:"embedding_batch_size,omitempty"`
}

// DiarizationRequest holds parameters for a diarization call.
type DiarizationRequest struct {
	// AudioPath is the path to the audio file to diarize.
	AudioPath string `json:"audio_path"`
	// NumSpeakers is the exact expected number of speakers (0 = auto-detect).
	NumSpeakers int `json:"num_speakers,omitempty"`
	// WindowStart and WindowEnd bound the portion of the file to process,
	// in seconds. Both zero means the whole file. Segment times in the
	// response are relative to WindowStart.
	WindowStart float64 `json:"window_start,omitempty"`
	WindowEnd   float64 `json:"window_end,omitempty"`
	// Tuning adjusts backend pipeline parameters.
	Tuning Tuning `json:"tuning,omitempty"`
}

// DiarizationResponse holds the result of a diarization call.
type DiarizationResponse struct {
	// Segments contains speaker-attributed time intervals in chronological
	// order of emission.
	Segments []Segment `json:"segments"`
	// NumSpeakers is the number of distinct speakers detected.
	NumSpeakers int `json:"num_speakers"`
}

// Segment represents one acoustic turn: a speaker-attributed time interval.
type Segment struct {
	// Speaker is the backend-assigned speaker label.
	Speaker string `json:"speaker"`
	// Start is the interval start time in seconds.
	Start float64 `json:"start"`
	// End is the interval end time in seconds.
	End float64 `json:"end"`
}

// Duration returns the interval length in seconds.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Contains reports whether t falls within [Start, End].
func (s Segment) Contains(t float64) bool {
	return s.Start <= t && t <= s.End
}

// Shift returns a copy of the segment with both bounds moved by offset
// seconds. Window-relative results are shifted back to file time before
// merging.
func (s Segment) Shift(offset float64) Segment {
	return Segment{Speaker: s.Speaker, Start: s.Start + offset, End: s.End + offset}
}
