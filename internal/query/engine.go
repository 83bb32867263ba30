package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/research-analyst/backend/internal/analysis"
	"github.com/research-analyst/backend/internal/fundamentals"
	"github.com/research-analyst/backend/internal/metrics"
	"github.com/research-analyst/backend/internal/tabular"
	"github.com/research-analyst/backend/pkg/logger"
)

type Intent string

const (
	IntentAnalyze    Intent = "analyze"
	IntentCompare    Intent = "compare"
	IntentTranscript Intent = "transcript"
)

const (
	PeerComparisonTable     = "Peer Comparison"
	TranscriptAnalysisTable = "Transcript Analysis"
)

var peerDisplayColumns = []string{fundamentals.CompanyKey, "Return on equity", "Current Price"}

type Engine struct {
	fetcher     fundamentals.Fetcher
	analyzer    *analysis.Analyzer
	tickers     TickerExtractor
	transcripts TranscriptSource
}

type Option func(*Engine)

func WithTickerExtractor(t TickerExtractor) Option {
	return func(e *Engine) { e.tickers = t }
}

func WithTranscriptSource(s TranscriptSource) Option {
	return func(e *Engine) { e.transcripts = s }
}

type QueryRequest struct {
	Query     string
	SessionID string
	// Transcript overrides the engine's transcript source when set.
	Transcript analysis.Transcript
}

type QueryResponse struct {
	ID        string           `json:"id"`
	Query     string           `json:"query"`
	Response  string           `json:"response"`
	Tables    *tabular.Set     `json:"tables"`
	Intents   []Intent         `json:"intents"`
	Failures  []Failure        `json:"failures"`
	Report    *analysis.Report `json:"transcript,omitempty"`
	LatencyMS int              `json:"latency_ms"`
}

// Failure records an intent that could not be served. The rest of the
// response is still produced.
type Failure struct {
	Intent  Intent `json:"intent"`
	Subject string `json:"subject"`
	Error   string `json:"error"`
}

func NewEngine(fetcher fundamentals.Fetcher, analyzer *analysis.Analyzer, opts ...Option) *Engine {
	e := &Engine{
		fetcher:     fetcher,
		analyzer:    analyzer,
		tickers:     RegexTickerExtractor{},
		transcripts: TranscriptFunc(sampleTranscript),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.analyzer == nil {
		e.analyzer = analysis.NewAnalyzer(nil, nil, logger.GetLogger())
	}
	return e
}

// HandleQuery returns the chat answer and the tables it produced.
func (e *Engine) HandleQuery(ctx context.Context, message string) (string, *tabular.Set, error) {
	resp, err := e.ProcessQuery(ctx, QueryRequest{Query: message})
	if err != nil {
		return "", nil, err
	}
	return resp.Response, resp.Tables, nil
}

func (e *Engine) ProcessQuery(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	startTime := time.Now()
	queryID := uuid.New().String()

	logger.Info("Processing query",
		zap.String("query_id", queryID),
		zap.String("session_id", req.SessionID),
		zap.String("query", req.Query),
	)

	resp := &QueryResponse{
		ID:       queryID,
		Query:    req.Query,
		Tables:   tabular.NewSet(),
		Intents:  []Intent{},
		Failures: []Failure{},
	}

	var out strings.Builder
	lower := strings.ToLower(req.Query)

	if strings.Contains(lower, string(IntentAnalyze)) {
		if err := e.analyze(ctx, req.Query, &out, resp); err != nil {
			return nil, err
		}
	}

	if strings.Contains(lower, string(IntentCompare)) {
		if err := e.compare(ctx, req.Query, &out, resp); err != nil {
			return nil, err
		}
	}

	if strings.Contains(lower, string(IntentTranscript)) {
		if err := e.transcript(ctx, req.Transcript, &out, resp); err != nil {
			return nil, err
		}
	}

	resp.Response = strings.TrimSpace(out.String())
	resp.LatencyMS = int(time.Since(startTime).Milliseconds())

	status := "ok"
	if len(resp.Failures) > 0 {
		status = "partial"
	} else if len(resp.Intents) == 0 {
		status = "no_intent"
	}
	metrics.QueryTotal.WithLabelValues(status).Inc()

	logger.Info("Query processed",
		zap.String("query_id", queryID),
		zap.Int("intents", len(resp.Intents)),
		zap.Int("tables", resp.Tables.Len()),
		zap.Int("failures", len(resp.Failures)),
		zap.Int("latency_ms", resp.LatencyMS),
	)

	return resp, nil
}

func (e *Engine) analyze(ctx context.Context, message string, out *strings.Builder, resp *QueryResponse) error {
	ticker, ok := e.tickers.AnalyzeTicker(message)
	if !ok {
		logger.Debug("Analyze trigger without ticker", zap.String("query_id", resp.ID))
		return nil
	}
	resp.Intents = append(resp.Intents, IntentAnalyze)

	summary, err := e.fetcher.Fetch(ctx, ticker)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("failed to analyze %s: %w", ticker, ctxErr)
		}
		e.recordFailure(out, resp, IntentAnalyze, ticker, err)
		return nil
	}

	fmt.Fprintf(out, "**Key Financial Summary for %s:**\n", ticker)
	table := tabular.NewTable("Metric", "Value")
	summary.Each(func(k, v string) {
		fmt.Fprintf(out, "- %s: %s\n", k, v)
		table.AddRow(k, v)
	})
	resp.Tables.Put(ticker, table)
	metrics.IntentTotal.WithLabelValues(string(IntentAnalyze), "ok").Inc()

	return nil
}

func (e *Engine) compare(ctx context.Context, message string, out *strings.Builder, resp *QueryResponse) error {
	resp.Intents = append(resp.Intents, IntentCompare)
	out.WriteString("\n**Peer Comparison:**\n")

	tickers := e.tickers.PeerTickers(message)
	if len(tickers) == 0 {
		out.WriteString("No tickers found to compare.\n")
		metrics.IntentTotal.WithLabelValues(string(IntentCompare), "empty").Inc()
		return nil
	}

	var summaries []*fundamentals.Summary
	for _, ticker := range tickers {
		summary, err := e.fetcher.Fetch(ctx, ticker)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return fmt.Errorf("failed to compare %s: %w", ticker, ctxErr)
			}
			e.recordFailure(out, resp, IntentCompare, ticker, err)
			continue
		}
		summaries = append(summaries, summary)
	}

	if len(summaries) == 0 {
		return nil
	}

	table := peerTable(summaries)
	out.WriteString(tabular.Markdown(table.Project(peerDisplayColumns...)))
	resp.Tables.Put(PeerComparisonTable, table)
	metrics.IntentTotal.WithLabelValues(string(IntentCompare), "ok").Inc()

	return nil
}

// peerTable lays summaries out one per row. Columns are the union of metric
// names in first-seen order; a company without a metric gets an empty cell.
func peerTable(summaries []*fundamentals.Summary) *tabular.Table {
	var columns []string
	seen := make(map[string]bool)
	for _, s := range summaries {
		for _, k := range s.Keys() {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
	}

	table := tabular.NewTable(columns...)
	for _, s := range summaries {
		row := make([]string, len(columns))
		for i, c := range columns {
			row[i], _ = s.Get(c)
		}
		table.AddRow(row...)
	}
	return table
}

func (e *Engine) transcript(ctx context.Context, supplied analysis.Transcript, out *strings.Builder, resp *QueryResponse) error {
	resp.Intents = append(resp.Intents, IntentTranscript)

	t := supplied
	if t == "" {
		var err error
		t, err = e.transcripts.Transcript(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return fmt.Errorf("failed to load transcript: %w", ctxErr)
			}
			resp.Failures = append(resp.Failures, Failure{Intent: IntentTranscript, Subject: "transcript", Error: err.Error()})
			fmt.Fprintf(out, "\n⚠️ Could not load transcript: %v\n", err)
			metrics.IntentTotal.WithLabelValues(string(IntentTranscript), "error").Inc()
			return nil
		}
	}

	report := e.analyzer.Analyze(t)
	resp.Report = &report

	out.WriteString("\n**Transcript Summary:**\n")
	for _, point := range report.Summary {
		fmt.Fprintf(out, "- %s\n", point)
	}
	fmt.Fprintf(out, "\n**Management Sentiment:** %s\n", report.Sentiment)
	out.WriteString("**Past Commitments:**\n")

	table := tabular.NewTable("Commitment", "Status")
	for _, ev := range report.Commitments {
		fmt.Fprintf(out, "- %s → %s\n", ev.Commitment, ev.Status)
		table.AddRow(string(ev.Commitment), string(ev.Status))
	}
	resp.Tables.Put(TranscriptAnalysisTable, table)

	metrics.TranscriptsAnalyzed.WithLabelValues(report.Sentiment.String()).Inc()
	metrics.IntentTotal.WithLabelValues(string(IntentTranscript), "ok").Inc()

	return nil
}

func (e *Engine) recordFailure(out *strings.Builder, resp *QueryResponse, intent Intent, ticker string, err error) {
	logger.Warn("Intent failed",
		zap.String("query_id", resp.ID),
		zap.String("intent", string(intent)),
		zap.String("ticker", ticker),
		zap.Error(err),
	)

	resp.Failures = append(resp.Failures, Failure{Intent: intent, Subject: ticker, Error: err.Error()})
	fmt.Fprintf(out, "⚠️ Could not fetch fundamentals for %s: %v\n", ticker, err)
	metrics.IntentTotal.WithLabelValues(string(intent), "error").Inc()
}

// IsAborted reports whether err came from a cancelled or expired query.
func IsAborted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
