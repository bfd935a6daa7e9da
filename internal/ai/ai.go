// Package ai defines the external speech-to-text and text-generation
// capabilities the pipeline depends on, plus the OpenAI-backed
// implementation. Failures from either capability are opaque to callers.
package ai

import "context"

// Transcriber converts recorded audio into plain text. The filename hint
// lets the backend infer the container format.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename, language string) (string, error)
}

// Completer answers a single-turn generation request under a fixed system
// framing and returns the raw model text, fences and all.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}
