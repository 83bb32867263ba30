package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeSampleTranscript(t *testing.T) {
	a := NewAnalyzer(nil, FixedEvaluator(StatusMet), nil)

	report := a.Analyze(SampleTranscript)
	assert.Len(t, report.Summary, 2)
	assert.Equal(t, Positive, report.Sentiment)
	assert.Greater(t, report.Polarity, 0.1)

	require.Len(t, report.Commitments, 1)
	assert.Contains(t, string(report.Commitments[0].Commitment), "target of 21%")
	assert.Equal(t, StatusMet, report.Commitments[0].Status)
}

func TestAnalyzeEmptyTranscript(t *testing.T) {
	report := NewAnalyzer(nil, nil, nil).Analyze("")
	assert.Empty(t, report.Summary)
	assert.Equal(t, Neutral, report.Sentiment)
	assert.Empty(t, report.Commitments)
}
