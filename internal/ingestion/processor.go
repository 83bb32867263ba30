package ingestion

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/research-analyst/backend/internal/analysis"
	"github.com/research-analyst/backend/internal/storage/models"
	"github.com/research-analyst/backend/internal/storage/sqlite"
	"github.com/research-analyst/backend/pkg/logger"
	"github.com/research-analyst/backend/pkg/utils"
)

var ErrEmptyTranscript = errors.New("no transcript text supplied")

var whitespace = regexp.MustCompile(`\s+`)

// Recorder persists analyzed transcripts.
type Recorder interface {
	InsertTranscript(t *models.TranscriptRecord) error
}

type Processor struct {
	analyzer *analysis.Analyzer
	recorder Recorder
}

func NewProcessor(analyzer *analysis.Analyzer, recorder Recorder) *Processor {
	return &Processor{
		analyzer: analyzer,
		recorder: recorder,
	}
}

type Result struct {
	ID     string          `json:"id"`
	Title  string          `json:"title"`
	Report analysis.Report `json:"report"`
}

// FromHTML extracts the readable body text of an HTML transcript page.
func (p *Processor) FromHTML(html string) (analysis.Transcript, string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	title := extractTitle(doc)

	doc.Find("script, style, nav, footer, header, aside").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	text := whitespace.ReplaceAllString(doc.Find("body").Text(), " ")
	text = strings.TrimSpace(text)
	if text == "" {
		return "", title, ErrEmptyTranscript
	}

	return analysis.Transcript(text), title, nil
}

func (p *Processor) FromText(text string) (analysis.Transcript, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyTranscript
	}
	return analysis.Transcript(text), nil
}

// Process analyzes t and stores the outcome when a recorder is configured.
func (p *Processor) Process(ctx context.Context, t analysis.Transcript, title string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if title == "" {
		title = "Untitled"
	}

	logger.Info("Processing transcript", zap.String("title", title), zap.Int("length", len(t)))

	report := p.analyzer.Analyze(t)
	result := &Result{
		ID:     utils.HashString(string(t)),
		Title:  title,
		Report: report,
	}

	if p.recorder != nil {
		summary := make([]string, 0, len(report.Summary))
		for _, point := range report.Summary {
			summary = append(summary, string(point))
		}

		err := p.recorder.InsertTranscript(&models.TranscriptRecord{
			ID:          result.ID,
			Title:       title,
			Content:     string(t),
			Sentiment:   report.Sentiment.String(),
			Polarity:    report.Polarity,
			Summary:     summary,
			Commitments: len(report.Commitments),
			CreatedAt:   time.Now(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to store transcript: %w", err)
		}
	}

	logger.Info("Transcript processed",
		zap.String("transcript_id", result.ID),
		zap.String("sentiment", report.Sentiment.String()),
		zap.Int("commitments", len(report.Commitments)),
	)

	return result, nil
}

func extractTitle(doc *goquery.Document) string {
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}
	if title == "" {
		title = "Untitled"
	}
	return title
}

// Source supplies the transcript the chat "transcript" intent analyzes.
type Source interface {
	Transcript(ctx context.Context) (analysis.Transcript, error)
}

// TranscriptStore reads back ingested transcripts. *sqlite.Client implements it.
type TranscriptStore interface {
	LatestTranscript() (*models.TranscriptRecord, error)
}

// StoredSource serves the most recently ingested transcript, or fallback
// while nothing has been ingested.
type StoredSource struct {
	store    TranscriptStore
	fallback Source
}

func NewStoredSource(store TranscriptStore, fallback Source) *StoredSource {
	return &StoredSource{store: store, fallback: fallback}
}

func (s *StoredSource) Transcript(ctx context.Context) (analysis.Transcript, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	rec, err := s.store.LatestTranscript()
	if errors.Is(err, sqlite.ErrNotFound) {
		logger.Debug("No ingested transcript, using fallback")
		return s.fallback.Transcript(ctx)
	}
	if err != nil {
		return "", fmt.Errorf("failed to load transcript: %w", err)
	}

	logger.Debug("Using ingested transcript", zap.String("transcript_id", rec.ID), zap.String("title", rec.Title))
	return analysis.Transcript(rec.Content), nil
}

// StaticSource always serves the same transcript.
type StaticSource struct {
	transcript analysis.Transcript
}

func NewStaticSource(t analysis.Transcript) *StaticSource {
	return &StaticSource{transcript: t}
}

func (s *StaticSource) Transcript(ctx context.Context) (analysis.Transcript, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.transcript == "" {
		return "", ErrEmptyTranscript
	}
	return s.transcript, nil
}
