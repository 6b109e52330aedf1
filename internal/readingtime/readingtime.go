// Package readingtime estimates how long a text takes to read.
//
// Words are maximal runs of non-bound runes, where the bounds are space,
// newline, carriage return and tab. Every CJK ideograph, kana or hangul
// syllable counts as a word of its own, and punctuation directly after such
// a rune is not counted again. Ideographs outside the Basic Multilingual
// Plane are ordinary letters, so a run of them is a single word.
package readingtime

import (
	"fmt"
	"math"
	"time"
)

// DefaultWordsPerMinute is the reading speed used when none is configured.
const DefaultWordsPerMinute = 200

// Result is the outcome of a single estimation pass.
type Result struct {
	Text    string        // human readable phrase, e.g. "1 min read"
	Minutes float64       // exact minutes, not rounded
	Time    time.Duration // Minutes rounded to the millisecond
	Words   int
}

// Estimator counts words and derives a reading time from them.
type Estimator struct {
	WordsPerMinute int
}

// New returns an estimator for the given reading speed. Non-positive speeds
// fall back to DefaultWordsPerMinute.
func New(wordsPerMinute int) Estimator {
	if wordsPerMinute <= 0 {
		wordsPerMinute = DefaultWordsPerMinute
	}

	return Estimator{WordsPerMinute: wordsPerMinute}
}

// Estimate runs the default estimator.
func Estimate(text string) Result {
	return New(DefaultWordsPerMinute).Estimate(text)
}

// Estimate counts the words in text and computes the reading time.
func (e Estimator) Estimate(text string) Result {
	wpm := e.WordsPerMinute
	if wpm <= 0 {
		wpm = DefaultWordsPerMinute
	}

	words := CountWords(text)
	minutes := float64(words) / float64(wpm)
	displayed := math.Ceil(math.Round(minutes*100) / 100)

	return Result{
		Text:    fmt.Sprintf("%d min read", int(displayed)),
		Minutes: minutes,
		Time:    time.Duration(math.Round(minutes*60*1000)) * time.Millisecond,
		Words:   words,
	}
}

// CountWords returns the number of words in text.
func CountWords(text string) int {
	runes := []rune(text)

	start, end := 0, len(runes)-1
	for start <= end && isWordBound(runes[start]) {
		start++
	}

	for end >= start && isWordBound(runes[end]) {
		end--
	}

	// a trailing bound makes the last word end like every other word
	runes = append(runes, '\n')

	words := 0

	for i := start; i <= end; i++ {
		r := runes[i]
		next := runes[i+1]

		if isCJK(r) || (!isWordBound(r) && (isWordBound(next) || isCJK(next))) {
			words++
		}

		if isCJK(r) {
			for i <= end && (isPunctuation(runes[i+1]) || isWordBound(runes[i+1])) {
				i++
			}
		}
	}

	return words
}

func isWordBound(r rune) bool {
	switch r {
	case ' ', '\n', '\r', '\t':
		return true
	}

	return false
}

func inRanges(r rune, ranges [][2]rune) bool {
	for _, rg := range ranges {
		if rg[0] <= r && r <= rg[1] {
			return true
		}
	}

	return false
}

var cjkRanges = [][2]rune{
	{0x3040, 0x309f}, // hiragana
	{0x4e00, 0x9fff}, // CJK unified ideographs
	{0xac00, 0xd7a3}, // hangul syllables
}

var punctuationRanges = [][2]rune{
	{0x21, 0x2f},
	{0x3a, 0x40},
	{0x5b, 0x60},
	{0x7b, 0x7e},
	{0x3000, 0x303f}, // CJK symbols and punctuation
	{0xff00, 0xffef}, // full width forms
}

func isCJK(r rune) bool {
	return inRanges(r, cjkRanges)
}

func isPunctuation(r rune) bool {
	return inRanges(r, punctuationRanges)
}
