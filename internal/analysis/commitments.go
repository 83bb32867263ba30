package analysis

import (
	"regexp"
	"strings"
)

// Commitment is a "we ... target/expect ... N%" phrase lifted verbatim from a transcript.
type Commitment string

var (
	commitmentPattern     = regexp.MustCompile(`(?i)(we .*?target.*?\d+%|we .*?expect.*?\d+%)`)
	commitmentFullPattern = regexp.MustCompile(`(?i)^(?:we .*?target.*?\d+%|we .*?expect.*?\d+%)$`)
)

// ExtractCommitments returns every non-overlapping commitment match in order of appearance.
func ExtractCommitments(t Transcript) []Commitment {
	matches := commitmentPattern.FindAllString(string(t), -1)
	commitments := make([]Commitment, 0, len(matches))
	for _, m := range matches {
		commitments = append(commitments, Commitment(m))
	}
	return commitments
}

// IsCommitment reports whether s, as a whole, has the commitment shape.
func IsCommitment(s string) bool {
	return commitmentFullPattern.MatchString(strings.TrimSpace(s))
}
