package fundamentals

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const metricRowSelector = ".company-ratios .col, .info-list li"

// Parse reads a company page. The title comes from the first h1; each metric
// row contributes its label (small, else span) and value (span.number, else b).
func Parse(r io.Reader) (*Summary, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	h1 := doc.Find("h1").First()
	if h1.Length() == 0 {
		return nil, fmt.Errorf("%w: missing company heading", ErrParse)
	}

	summary := NewSummary(strings.TrimSpace(h1.Text()))

	doc.Find(metricRowSelector).Each(func(_ int, row *goquery.Selection) {
		key := firstOf(row, "small", "span")
		value := firstOf(row, "span.number", "b")
		if key == nil || value == nil {
			return
		}

		name := strings.TrimSpace(key.Text())
		if name == "" {
			return
		}
		summary.Set(name, strings.TrimSpace(value.Text()))
	})

	return summary, nil
}

func firstOf(row *goquery.Selection, selectors ...string) *goquery.Selection {
	for _, sel := range selectors {
		if match := row.Find(sel).First(); match.Length() > 0 {
			return match
		}
	}
	return nil
}
