// Package llm defines the language-model provider interface used by the
// text-only speaker identifier, along with universal request/response types.
package llm
