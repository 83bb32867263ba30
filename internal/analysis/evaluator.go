package analysis

import (
	"math/rand"
	"strings"
	"sync"
	"time"
)

type CommitmentStatus string

const (
	StatusMet    CommitmentStatus = "Met"
	StatusNotMet CommitmentStatus = "Not Met"
)

type CommitmentEvaluation struct {
	Commitment Commitment       `json:"commitment"`
	Status     CommitmentStatus `json:"status"`
}

// StatusEvaluator decides whether a commitment was met.
type StatusEvaluator interface {
	Evaluate(c Commitment) CommitmentStatus
}

// RandomEvaluator picks Met or Not Met uniformly. It is a placeholder until
// reported actuals are available to compare targets against.
type RandomEvaluator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomEvaluator seeds from the clock when seed is 0.
func NewRandomEvaluator(seed int64) *RandomEvaluator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomEvaluator{rng: rand.New(rand.NewSource(seed))}
}

func (e *RandomEvaluator) Evaluate(Commitment) CommitmentStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.rng.Intn(2) == 0 {
		return StatusMet
	}
	return StatusNotMet
}

// FixedEvaluator always returns the same status.
type FixedEvaluator CommitmentStatus

func (f FixedEvaluator) Evaluate(Commitment) CommitmentStatus {
	return CommitmentStatus(f)
}

func EvaluateCommitments(commitments []Commitment, evaluator StatusEvaluator) []CommitmentEvaluation {
	evaluations := make([]CommitmentEvaluation, 0, len(commitments))
	for _, c := range commitments {
		trimmed := Commitment(strings.TrimSpace(string(c)))
		evaluations = append(evaluations, CommitmentEvaluation{
			Commitment: trimmed,
			Status:     evaluator.Evaluate(trimmed),
		})
	}
	return evaluations
}
