package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCommitmentsSampleTranscript(t *testing.T) {
	commitments := ExtractCommitments(SampleTranscript)
	require.Len(t, commitments, 1)
	assert.Equal(t, Commitment("We had previously announced a margin target of 21%"), commitments[0])
	assert.True(t, IsCommitment(string(commitments[0])))
}

func TestExtractCommitments(t *testing.T) {
	tests := []struct {
		name string
		in   Transcript
		want []Commitment
	}{
		{"none", "Revenue was flat.", []Commitment{}},
		{"expect", "WE EXPECT 10% growth", []Commitment{"WE EXPECT 10%"}},
		{"two in order", "we target 5% margin and we expect 7% growth",
			[]Commitment{"we target 5%", "we expect 7%"}},
		{"needs percent", "we expect growth", []Commitment{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractCommitments(tt.in))
		})
	}
}

func TestIsCommitment(t *testing.T) {
	assert.True(t, IsCommitment("we target 5%"))
	assert.False(t, IsCommitment("they target 5%"))
	assert.False(t, IsCommitment("we target growth"))
}

func TestEvaluateCommitments(t *testing.T) {
	in := []Commitment{"  we target 5% ", "we expect 9%"}

	got := EvaluateCommitments(in, FixedEvaluator(StatusNotMet))
	assert.Equal(t, []CommitmentEvaluation{
		{Commitment: "we target 5%", Status: StatusNotMet},
		{Commitment: "we expect 9%", Status: StatusNotMet},
	}, got)

	assert.Empty(t, EvaluateCommitments(nil, FixedEvaluator(StatusMet)))
}

func TestRandomEvaluatorProducesBothStatuses(t *testing.T) {
	ev := NewRandomEvaluator(42)
	seen := map[CommitmentStatus]int{}
	for i := 0; i < 200; i++ {
		seen[ev.Evaluate("we target 5%")]++
	}

	assert.Len(t, seen, 2)
	assert.Positive(t, seen[StatusMet])
	assert.Positive(t, seen[StatusNotMet])
}
