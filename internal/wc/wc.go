// Package wc computes byte, character, word and line counts for submitted
// text and files, and folds them into a combined total.
package wc

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"sizes/internal/readingtime"
	"sizes/internal/types"
)

// Totals holds the numeric counts of one or more units.
type Totals struct {
	Bytes int `json:"bytes"`
	Chars int `json:"chars"`
	Words int `json:"words"`
	Lines int `json:"lines"`
}

// Add returns the field-wise sum of t and o.
func (t Totals) Add(o Totals) Totals {
	return Totals{
		Bytes: t.Bytes + o.Bytes,
		Chars: t.Chars + o.Chars,
		Words: t.Words + o.Words,
		Lines: t.Lines + o.Lines,
	}
}

// Stats are the counts of a single unit plus its reading time phrase.
type Stats struct {
	Totals
	ReadingTime string `json:"readingTime"`
}

// FileResult pairs a file name with its stats.
type FileResult struct {
	Name string `json:"name"`
	WC   Stats  `json:"wc"`
}

// Request is the input of Do. Text is ignored when empty.
type Request struct {
	Text  string
	Files []types.File
}

// Result is the aggregate of a request. Files keeps the order of the request.
type Result struct {
	Text  *Stats       `json:"text,omitempty"`
	Total Totals       `json:"total"`
	Files []FileResult `json:"files"`
}

// Counter computes unit stats with a configurable reading speed.
type Counter struct {
	estimator readingtime.Estimator
}

// NewCounter returns a counter reading at wordsPerMinute.
func NewCounter(wordsPerMinute int) *Counter {
	return &Counter{estimator: readingtime.New(wordsPerMinute)}
}

// Count computes the stats of text with the default reading speed.
func Count(text string) Stats {
	return NewCounter(readingtime.DefaultWordsPerMinute).Count(text)
}

// Count computes the stats of a single unit of text.
func (c *Counter) Count(text string) Stats {
	rt := c.estimator.Estimate(text)

	return Stats{
		Totals: Totals{
			Bytes: len(text),
			Chars: utf8.RuneCountInString(text),
			Words: rt.Words,
			Lines: strings.Count(text, "\n") + 1,
		},
		ReadingTime: rt.Text,
	}
}

// Do aggregates with the default reading speed.
func Do(req Request) (Result, error) {
	return NewCounter(readingtime.DefaultWordsPerMinute).Do(req)
}

// Do counts the text and every file and sums them into Total. Files are
// read and counted concurrently; each one writes only its own slot.
func (c *Counter) Do(req Request) (Result, error) {
	result := Result{Files: []FileResult{}}

	if req.Text != "" {
		stats := c.Count(req.Text)
		result.Text = &stats
		result.Total = stats.Totals
	}

	if len(req.Files) == 0 {
		return result, nil
	}

	files := make([]FileResult, len(req.Files))

	var g errgroup.Group

	for i, f := range req.Files {
		g.Go(func() error {
			text, err := f.Text()
			if err != nil {
				return fmt.Errorf("failed to read file %d: %w", i, err)
			}

			files[i] = FileResult{Name: f.Name, WC: c.Count(text)}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	for _, f := range files {
		result.Total = result.Total.Add(f.WC.Totals)
	}

	result.Files = files

	return result, nil
}
