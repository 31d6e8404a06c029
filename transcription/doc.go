// Package transcription defines the transcription provider interface and
// common types for interacting with speech-to-text backends.
//
// Responses carry word-level timestamps, which the temporal aligner requires
// to place each word inside a diarization interval.
package transcription
