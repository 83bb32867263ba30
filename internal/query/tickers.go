package query

import (
	"regexp"
	"strings"
)

// TickerExtractor pulls company slugs out of a chat message.
type TickerExtractor interface {
	// AnalyzeTicker returns the slug following "analyze", upper-cased.
	AnalyzeTicker(message string) (string, bool)
	// PeerTickers returns every slug candidate in the message, in order.
	PeerTickers(message string) []string
}

var (
	analyzePattern = regexp.MustCompile(`(?i)analyze\s+([A-Z]+)`)
	peerPattern    = regexp.MustCompile(`[A-Z]{3,}`)
)

// RegexTickerExtractor treats any run of three or more capitals as a ticker,
// so words like "AND" or "YOY" are picked up too.
type RegexTickerExtractor struct{}

func (RegexTickerExtractor) AnalyzeTicker(message string) (string, bool) {
	m := analyzePattern.FindStringSubmatch(message)
	if m == nil {
		return "", false
	}
	return strings.ToUpper(m[1]), true
}

func (RegexTickerExtractor) PeerTickers(message string) []string {
	return peerPattern.FindAllString(message, -1)
}
