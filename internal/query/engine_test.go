package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/research-analyst/backend/internal/analysis"
	"github.com/research-analyst/backend/internal/fundamentals"
)

type fakeFetcher struct {
	pages map[string]map[string]string
	order map[string][]string
	calls []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{pages: map[string]map[string]string{}, order: map[string][]string{}}
}

func (f *fakeFetcher) add(slug, company string, kv ...string) {
	f.pages[slug] = map[string]string{}
	for i := 0; i+1 < len(kv); i += 2 {
		f.pages[slug][kv[i]] = kv[i+1]
		f.order[slug] = append(f.order[slug], kv[i])
	}
	f.pages[slug][fundamentals.CompanyKey] = company
}

func (f *fakeFetcher) Fetch(ctx context.Context, slug string) (*fundamentals.Summary, error) {
	f.calls = append(f.calls, slug)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	page, ok := f.pages[slug]
	if !ok {
		return nil, fmt.Errorf("%s: %w", slug, fundamentals.ErrNotFound)
	}
	s := fundamentals.NewSummary(page[fundamentals.CompanyKey])
	for _, k := range f.order[slug] {
		s.Set(k, page[k])
	}
	return s, nil
}

func newTestEngine(f *fakeFetcher, opts ...Option) *Engine {
	analyzer := analysis.NewAnalyzer(nil, analysis.FixedEvaluator(analysis.StatusMet), nil)
	return NewEngine(f, analyzer, opts...)
}

func TestHandleQueryAnalyze(t *testing.T) {
	f := newFakeFetcher()
	f.add("TCS", "TCS", "Return on equity", "25%")

	text, tables, err := newTestEngine(f).HandleQuery(context.Background(), "analyze tcs")
	require.NoError(t, err)

	assert.Equal(t, "**Key Financial Summary for TCS:**\n- Company: TCS\n- Return on equity: 25%", text)
	assert.Equal(t, []string{"TCS"}, tables.Names())

	tbl, _ := tables.Get("TCS")
	assert.Equal(t, []string{"Metric", "Value"}, tbl.Columns)
	assert.Equal(t, [][]string{{"Company", "TCS"}, {"Return on equity", "25%"}}, tbl.Rows)
}

func TestHandleQueryAnalyzeWithoutTicker(t *testing.T) {
	f := newFakeFetcher()
	text, tables, err := newTestEngine(f).HandleQuery(context.Background(), "please analyze")
	require.NoError(t, err)

	assert.Empty(t, text)
	assert.Zero(t, tables.Len())
	assert.Empty(t, f.calls)
}

func TestHandleQueryNoIntent(t *testing.T) {
	f := newFakeFetcher()
	resp, err := newTestEngine(f).ProcessQuery(context.Background(), QueryRequest{Query: "hello"})
	require.NoError(t, err)

	assert.Equal(t, "", resp.Response)
	assert.Zero(t, resp.Tables.Len())
	assert.Empty(t, resp.Intents)
	assert.Empty(t, f.calls)
}

func TestHandleQueryCompare(t *testing.T) {
	f := newFakeFetcher()
	f.add("TCS", "Tata Consultancy", "Current Price", "3,500", "Return on equity", "50%")
	f.add("INFY", "Infosys", "Return on equity", "30%", "Book Value", "200")

	resp, err := newTestEngine(f).ProcessQuery(context.Background(), QueryRequest{Query: "compare TCS with INFY"})
	require.NoError(t, err)

	assert.Equal(t, []string{"TCS", "INFY"}, f.calls)
	assert.Equal(t, []Intent{IntentCompare}, resp.Intents)

	tbl, ok := resp.Tables.Get(PeerComparisonTable)
	require.True(t, ok)
	assert.Equal(t, []string{"Company", "Current Price", "Return on equity", "Book Value"}, tbl.Columns)
	assert.Equal(t, [][]string{
		{"Tata Consultancy", "3,500", "50%", ""},
		{"Infosys", "", "30%", "200"},
	}, tbl.Rows)

	assert.True(t, strings.HasPrefix(resp.Response, "**Peer Comparison:**\n| Company "))
	assert.Contains(t, resp.Response, "| Return on equity | Current Price |")
	assert.NotContains(t, resp.Response, "Book Value")
}

func TestHandleQueryCompareWithoutTickers(t *testing.T) {
	resp, err := newTestEngine(newFakeFetcher()).ProcessQuery(context.Background(), QueryRequest{Query: "compare these"})
	require.NoError(t, err)

	assert.Equal(t, "**Peer Comparison:**\nNo tickers found to compare.", resp.Response)
	assert.Zero(t, resp.Tables.Len())
}

func TestHandleQueryTranscript(t *testing.T) {
	resp, err := newTestEngine(newFakeFetcher()).ProcessQuery(context.Background(), QueryRequest{Query: "transcript please"})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(resp.Response, "**Transcript Summary:**\n- We are pleased"))
	assert.Contains(t, resp.Response, "\n\n**Management Sentiment:** Positive\n**Past Commitments:**\n")
	assert.True(t, strings.HasSuffix(resp.Response, "- We had previously announced a margin target of 21% → Met"))

	tbl, ok := resp.Tables.Get(TranscriptAnalysisTable)
	require.True(t, ok)
	assert.Equal(t, []string{"Commitment", "Status"}, tbl.Columns)
	assert.Equal(t, [][]string{{"We had previously announced a margin target of 21%", "Met"}}, tbl.Rows)

	require.NotNil(t, resp.Report)
	assert.Len(t, resp.Report.Summary, 2)
}

func TestHandleQuerySuppliedTranscript(t *testing.T) {
	resp, err := newTestEngine(newFakeFetcher()).ProcessQuery(context.Background(), QueryRequest{
		Query:      "transcript",
		Transcript: "Revenue declined. We expect 5% margin pressure",
	})
	require.NoError(t, err)

	assert.Contains(t, resp.Response, "- Revenue declined\n")
	assert.Contains(t, resp.Response, "- We expect 5% → Met")
}

func TestTranscriptSourceFailureIsIsolated(t *testing.T) {
	f := newFakeFetcher()
	f.add("TCS", "TCS")
	src := TranscriptFunc(func(context.Context) (analysis.Transcript, error) {
		return "", errors.New("transcript store offline")
	})

	resp, err := newTestEngine(f, WithTranscriptSource(src)).ProcessQuery(context.Background(),
		QueryRequest{Query: "analyze TCS transcript"})
	require.NoError(t, err)

	assert.Contains(t, resp.Response, "**Key Financial Summary for TCS:**")
	assert.Contains(t, resp.Response, "Could not load transcript: transcript store offline")
	require.Len(t, resp.Failures, 1)
	assert.Equal(t, IntentTranscript, resp.Failures[0].Intent)
}

func TestSectionsFollowTriggerOrder(t *testing.T) {
	f := newFakeFetcher()
	f.add("TCS", "TCS", "Return on equity", "25%", "Current Price", "3,500")

	resp, err := newTestEngine(f).ProcessQuery(context.Background(), QueryRequest{Query: "transcript then compare TCS, analyze TCS"})
	require.NoError(t, err)

	assert.Equal(t, []Intent{IntentAnalyze, IntentCompare, IntentTranscript}, resp.Intents)
	a := strings.Index(resp.Response, "**Key Financial Summary")
	c := strings.Index(resp.Response, "**Peer Comparison:**")
	tr := strings.Index(resp.Response, "**Transcript Summary:**")
	assert.True(t, a == 0 && a < c && c < tr)
	assert.Equal(t, []string{"TCS", PeerComparisonTable, TranscriptAnalysisTable}, resp.Tables.Names())
}

func TestFetchFailureIsIsolated(t *testing.T) {
	f := newFakeFetcher()
	f.add("INFY", "Infosys", "Return on equity", "30%")

	resp, err := newTestEngine(f).ProcessQuery(context.Background(), QueryRequest{Query: "analyze XYZ then compare INFY transcript"})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(resp.Response, "⚠️ Could not fetch fundamentals for XYZ: XYZ: company not found"))
	assert.Contains(t, resp.Response, "**Peer Comparison:**")
	assert.Contains(t, resp.Response, "**Transcript Summary:**")

	require.Len(t, resp.Failures, 2)
	assert.Equal(t, Failure{Intent: IntentAnalyze, Subject: "XYZ", Error: "XYZ: company not found"}, resp.Failures[0])
	assert.Equal(t, IntentCompare, resp.Failures[1].Intent)

	_, ok := resp.Tables.Get("XYZ")
	assert.False(t, ok)
	peers, ok := resp.Tables.Get(PeerComparisonTable)
	require.True(t, ok)
	assert.Equal(t, [][]string{{"Infosys", "30%"}}, peers.Rows)
}

func TestCancelledContextAbortsQuery(t *testing.T) {
	f := newFakeFetcher()
	f.add("TCS", "TCS")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestEngine(f).ProcessQuery(ctx, QueryRequest{Query: "analyze TCS"})
	require.Error(t, err)
	assert.True(t, IsAborted(err))
}

func TestRegexTickerExtractor(t *testing.T) {
	var x RegexTickerExtractor

	ticker, ok := x.AnalyzeTicker("Can you ANALYZE   infy please")
	assert.True(t, ok)
	assert.Equal(t, "INFY", ticker)

	_, ok = x.AnalyzeTicker("analyze 123")
	assert.False(t, ok)

	assert.Equal(t, []string{"TCS", "INFY"}, x.PeerTickers("compare TCS, INFY and hdfc"))
	assert.Empty(t, x.PeerTickers("compare tcs"))
}
