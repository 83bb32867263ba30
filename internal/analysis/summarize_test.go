package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeSampleTranscript(t *testing.T) {
	points := Summarize(SampleTranscript)
	require.Len(t, points, 2)

	assert.True(t, strings.HasPrefix(string(points[0]), "We are pleased to report strong growth"))
	assert.True(t, strings.HasSuffix(string(points[0]), "17% YoY increase"))
	assert.True(t, strings.HasPrefix(string(points[1]), "However, headwinds"))
	assert.Contains(t, string(points[1]), "margin target of 21%")

	for _, p := range points {
		assert.Contains(t, string(SampleTranscript), string(p))
		assert.Equal(t, strings.TrimSpace(string(p)), string(p))
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name string
		in   Transcript
		want []SummaryPoint
	}{
		{"empty", "", nil},
		{"no keywords", "Hello there. Nice weather", nil},
		{"case insensitive", "Hi. REVENUE rose. Bye", []SummaryPoint{"REVENUE rose"}},
		{"every keyword", "growth a. revenue b. margin c. expanding d", []SummaryPoint{"growth a", "revenue b", "margin c", "expanding d"}},
		{"keeps order", "  margin up. nothing. growth too.  ", []SummaryPoint{"margin up", "growth too."}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Summarize(tt.in))
		})
	}
}
