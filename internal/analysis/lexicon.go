package analysis

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed lexicon.yaml
var defaultLexiconYAML []byte

// Lexicon holds per-word polarity scores and the modifiers that shift them.
type Lexicon struct {
	Words        map[string]float64 `yaml:"words"`
	Intensifiers map[string]float64 `yaml:"intensifiers"`
	Negations    []string           `yaml:"negations"`

	negations map[string]struct{}
}

var (
	defaultLexicon     *Lexicon
	defaultLexiconOnce sync.Once
)

// DefaultLexicon returns the lexicon compiled into the binary.
func DefaultLexicon() *Lexicon {
	defaultLexiconOnce.Do(func() {
		lex, err := ParseLexicon(defaultLexiconYAML)
		if err != nil {
			panic(fmt.Sprintf("embedded lexicon: %v", err))
		}
		defaultLexicon = lex
	})
	return defaultLexicon
}

// LoadLexicon reads a lexicon file. An empty path yields the default lexicon.
func LoadLexicon(path string) (*Lexicon, error) {
	if path == "" {
		return DefaultLexicon(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lexicon: %w", err)
	}
	return ParseLexicon(data)
}

func ParseLexicon(data []byte) (*Lexicon, error) {
	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return nil, fmt.Errorf("failed to parse lexicon: %w", err)
	}
	if len(lex.Words) == 0 {
		return nil, fmt.Errorf("lexicon has no scored words")
	}
	for word, score := range lex.Words {
		if score < -1 || score > 1 {
			return nil, fmt.Errorf("lexicon word %q: score %v outside [-1, 1]", word, score)
		}
	}
	for word, factor := range lex.Intensifiers {
		if factor <= 0 {
			return nil, fmt.Errorf("lexicon intensifier %q: factor must be positive", word)
		}
	}

	lex.negations = make(map[string]struct{}, len(lex.Negations))
	for _, n := range lex.Negations {
		lex.negations[n] = struct{}{}
	}
	return &lex, nil
}

func (l *Lexicon) isNegation(word string) bool {
	_, ok := l.negations[word]
	return ok
}
