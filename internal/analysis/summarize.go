package analysis

import "strings"

// SummaryPoint is a transcript segment that mentions a growth-related keyword.
type SummaryPoint string

var summaryKeywords = []string{"growth", "revenue", "margin", "expanding"}

// Summarize splits the transcript on ". " and keeps the segments that mention
// one of the summary keywords, in transcript order.
func Summarize(t Transcript) []SummaryPoint {
	var points []SummaryPoint
	for _, segment := range strings.Split(strings.TrimSpace(string(t)), ". ") {
		if containsKeyword(strings.ToLower(segment)) {
			points = append(points, SummaryPoint(strings.TrimSpace(segment)))
		}
	}
	return points
}

func containsKeyword(lower string) bool {
	for _, keyword := range summaryKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
