package query

import (
	"context"

	"github.com/research-analyst/backend/internal/analysis"
)

// TranscriptSource supplies the transcript for the transcript intent.
type TranscriptSource interface {
	Transcript(ctx context.Context) (analysis.Transcript, error)
}

// TranscriptFunc adapts a function to TranscriptSource.
type TranscriptFunc func(ctx context.Context) (analysis.Transcript, error)

func (f TranscriptFunc) Transcript(ctx context.Context) (analysis.Transcript, error) {
	return f(ctx)
}

func sampleTranscript(context.Context) (analysis.Transcript, error) {
	return analysis.SampleTranscript, nil
}
