package analysis

import (
	"time"

	"go.uber.org/zap"
)

// Report bundles every analysis of a single transcript.
type Report struct {
	Summary     []SummaryPoint         `json:"summary"`
	Polarity    float64                `json:"polarity"`
	Sentiment   Sentiment              `json:"sentiment"`
	Commitments []CommitmentEvaluation `json:"commitments"`
}

type Analyzer struct {
	lexicon   *Lexicon
	evaluator StatusEvaluator
	logger    *zap.Logger
}

func NewAnalyzer(lexicon *Lexicon, evaluator StatusEvaluator, logger *zap.Logger) *Analyzer {
	if lexicon == nil {
		lexicon = DefaultLexicon()
	}
	if evaluator == nil {
		evaluator = NewRandomEvaluator(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{
		lexicon:   lexicon,
		evaluator: evaluator,
		logger:    logger,
	}
}

func (a *Analyzer) Summarize(t Transcript) []SummaryPoint {
	return Summarize(t)
}

func (a *Analyzer) ClassifySentiment(t Transcript) Sentiment {
	return a.lexicon.ClassifySentiment(t)
}

func (a *Analyzer) ExtractCommitments(t Transcript) []Commitment {
	return ExtractCommitments(t)
}

func (a *Analyzer) EvaluateCommitments(commitments []Commitment) []CommitmentEvaluation {
	return EvaluateCommitments(commitments, a.evaluator)
}

func (a *Analyzer) Analyze(t Transcript) Report {
	start := time.Now()

	polarity := a.lexicon.Polarity(string(t))
	report := Report{
		Summary:     Summarize(t),
		Polarity:    polarity,
		Sentiment:   LabelForPolarity(polarity),
		Commitments: EvaluateCommitments(ExtractCommitments(t), a.evaluator),
	}

	a.logger.Debug("Transcript analyzed",
		zap.Int("length", len(t)),
		zap.Int("summary_points", len(report.Summary)),
		zap.String("sentiment", report.Sentiment.String()),
		zap.Int("commitments", len(report.Commitments)),
		zap.Duration("duration", time.Since(start)),
	)

	return report
}
