package analysis

import (
	"fmt"
	"strings"

	"github.com/jdkato/prose/v2"
)

type Sentiment int

const (
	Neutral Sentiment = iota
	Positive
	Negative
)

const (
	positiveThreshold = 0.1
	negativeThreshold = -0.1

	negationWindow = 3
	negationFactor = -0.5
)

func (s Sentiment) String() string {
	switch s {
	case Positive:
		return "Positive"
	case Negative:
		return "Negative"
	default:
		return "Neutral"
	}
}

func (s Sentiment) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Sentiment) UnmarshalText(text []byte) error {
	switch string(text) {
	case "Positive":
		*s = Positive
	case "Negative":
		*s = Negative
	case "Neutral":
		*s = Neutral
	default:
		return fmt.Errorf("unknown sentiment %q", text)
	}
	return nil
}

// LabelForPolarity maps a polarity to a label. Both thresholds are exclusive.
func LabelForPolarity(p float64) Sentiment {
	switch {
	case p > positiveThreshold:
		return Positive
	case p < negativeThreshold:
		return Negative
	default:
		return Neutral
	}
}

// Polarity scores text in [-1, 1] as the mean of its scored words. A word is
// scaled by an intensifier directly before it and flipped and damped by a
// negation within the preceding three tokens. Text with no scored word is 0.
func (l *Lexicon) Polarity(text string) float64 {
	var sum float64
	var scored int

	intensity := 1.0
	negated := 0
	for _, tok := range tokenize(text) {
		word := strings.ToLower(tok)

		switch {
		case isSentenceBreak(word):
			intensity, negated = 1, 0
			continue
		case l.isNegation(word):
			intensity, negated = 1, negationWindow
			continue
		}

		if factor, ok := l.Intensifiers[word]; ok {
			intensity = factor
			if negated > 0 {
				negated--
			}
			continue
		}

		if score, ok := l.Words[word]; ok {
			s := score * intensity
			if negated > 0 {
				s *= negationFactor
			}
			sum += clamp(s)
			scored++
			intensity, negated = 1, 0
			continue
		}

		intensity = 1
		if negated > 0 {
			negated--
		}
	}

	if scored == 0 {
		return 0
	}
	return clamp(sum / float64(scored))
}

func (l *Lexicon) ClassifySentiment(t Transcript) Sentiment {
	return LabelForPolarity(l.Polarity(string(t)))
}

// Polarity scores text with the default lexicon.
func Polarity(text string) float64 {
	return DefaultLexicon().Polarity(text)
}

func ClassifySentiment(t Transcript) Sentiment {
	return DefaultLexicon().ClassifySentiment(t)
}

func tokenize(text string) []string {
	doc, err := prose.NewDocument(text,
		prose.WithTagging(false),
		prose.WithSegmentation(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return strings.Fields(text)
	}

	tokens := doc.Tokens()
	words := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		words = append(words, tok.Text)
	}
	return words
}

func isSentenceBreak(word string) bool {
	switch word {
	case ".", "!", "?", ";":
		return true
	}
	return false
}

func clamp(v float64) float64 {
	return max(-1, min(1, v))
}
