// Package provider defines the base contract shared by all external
// collaborator backends (transcription, diarization, llm) together with a
// registry for runtime-selectable backends.
//
// A backend package exposes a Factory; applications register factories by
// name and create instances from configuration:
//
//	reg := provider.NewRegistry[diarization.Provider]()
//	reg.RegisterFactory("pyannote", pyannote.Factory())
//	p, err := reg.Create("pyannote", cfg)
package provider
