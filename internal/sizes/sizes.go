// Package sizes runs the sizes flow: word counts for every unit plus the
// size of each unit under every enabled compression algorithm.
package sizes

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"sizes/internal/compress"
	"sizes/internal/request"
	"sizes/internal/types"
	"sizes/internal/wc"
)

// Sizes holds the byte sizes of a unit. Only enabled entries are set.
// Length is the uncompressed size whether or not Initial was requested.
type Sizes struct {
	Initial *int `json:"initial,omitempty"`
	Brotli  *int `json:"brotli,omitempty"`
	Gzip    *int `json:"gzip,omitempty"`
	Deflate *int `json:"deflate,omitempty"`

	Length int `json:"-"`
}

func (s *Sizes) slot(alg compress.Algorithm) **int {
	switch alg {
	case compress.Brotli:
		return &s.Brotli
	case compress.Gzip:
		return &s.Gzip
	default:
		return &s.Deflate
	}
}

// Get returns the size for alg, if it was computed.
func (s Sizes) Get(alg compress.Algorithm) (int, bool) {
	p := *s.slot(alg)
	if p == nil {
		return 0, false
	}

	return *p, true
}

func addInto(dst **int, v *int) {
	if v == nil {
		return
	}

	if *dst == nil {
		n := 0
		*dst = &n
	}

	**dst += *v
}

// Add returns the field-wise sum of s and o; entries unset in both stay unset.
func (s Sizes) Add(o Sizes) Sizes {
	out := Sizes{Length: s.Length + o.Length}

	for _, p := range []struct{ dst, a, b **int }{
		{&out.Initial, &s.Initial, &o.Initial},
		{&out.Brotli, &s.Brotli, &o.Brotli},
		{&out.Gzip, &s.Gzip, &o.Gzip},
		{&out.Deflate, &s.Deflate, &o.Deflate},
	} {
		addInto(p.dst, *p.a)
		addInto(p.dst, *p.b)
	}

	return out
}

// NamedSizes pairs a file name with its sizes.
type NamedSizes struct {
	Name  string `json:"name"`
	Sizes Sizes  `json:"sizes"`
}

// Result is the outcome of the sizes flow.
type Result struct {
	WC    wc.Result                     `json:"wc"`
	Text  *Sizes                        `json:"text,omitempty"`
	Files []NamedSizes                  `json:"files"`
	Total Sizes                         `json:"total"`
	Algos map[string]request.AlgoConfig `json:"algorithms"`
}

// Runner executes sizes requests.
type Runner struct {
	counter     *wc.Counter
	concurrency int
}

// Option configures a Runner.
type Option func(*Runner)

// WithCounter sets the word counter used for the wc part of the result.
func WithCounter(c *wc.Counter) Option {
	return func(r *Runner) {
		r.counter = c
	}
}

// WithConcurrency bounds the number of compressions running at once.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// NewRunner returns a runner with the given options applied.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		counter:     wc.NewCounter(0),
		concurrency: runtime.GOMAXPROCS(0),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Do runs req with a default runner.
func Do(req request.SizesRequest) (Result, error) {
	return NewRunner().Do(req)
}

// MeasureError reports a unit that could not be compressed.
type MeasureError struct {
	Unit string
	Err  error
}

func (e *MeasureError) Error() string {
	return fmt.Sprintf("failed to measure %s: %v", e.Unit, e.Err)
}

func (e *MeasureError) Unwrap() error { return e.Err }

type unit struct {
	name string
	data []byte
	file bool
}

// Do counts every unit and measures it under each enabled algorithm.
// Text comes first in the unit list, followed by files in request order.
func (r *Runner) Do(req request.SizesRequest) (Result, error) {
	units, err := loadUnits(req)
	if err != nil {
		return Result{}, err
	}

	// files are read once; the word count runs over the loaded bytes
	wcReq := wc.Request{Text: req.Text, Files: make([]types.File, 0, len(req.Files))}

	for _, u := range units {
		if u.file {
			wcReq.Files = append(wcReq.Files, types.NewFile(u.name, u.data))
		}
	}

	wcResult, err := r.counter.Do(wcReq)
	if err != nil {
		return Result{}, err
	}

	measured := make([]Sizes, len(units))

	g := new(errgroup.Group)
	g.SetLimit(r.concurrency)

	for i, u := range units {
		measured[i].Length = len(u.data)

		if req.InitialEnabled {
			n := len(u.data)
			measured[i].Initial = &n
		}

		for _, alg := range compress.Algorithms {
			cfg := req.Config(alg)
			if !cfg.Enabled {
				continue
			}

			slot := measured[i].slot(alg)

			g.Go(func() error {
				n, err := compress.Size(alg, cfg.Level, u.data)
				if err != nil {
					return &MeasureError{Unit: u.name, Err: err}
				}

				*slot = &n

				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	result := Result{
		WC:    wcResult,
		Files: make([]NamedSizes, 0, len(req.Files)),
		Algos: make(map[string]request.AlgoConfig, len(compress.Algorithms)),
	}

	for _, alg := range compress.Algorithms {
		result.Algos[string(alg)] = req.Config(alg)
	}

	offset := 0

	if req.HasText() {
		result.Text = &measured[0]
		result.Total = Sizes{}.Add(measured[0])
		offset = 1
	}

	for i, f := range req.Files {
		s := measured[offset+i]
		result.Files = append(result.Files, NamedSizes{Name: f.Name, Sizes: s})
		result.Total = result.Total.Add(s)
	}

	return result, nil
}

// loadUnits reads every file. Text is measured as its UTF-8 encoding and
// files as their raw bytes.
func loadUnits(req request.SizesRequest) ([]unit, error) {
	units := make([]unit, 0, len(req.Files)+1)

	if req.HasText() {
		units = append(units, unit{name: "text", data: []byte(req.Text)})
	}

	loaded := make([]unit, len(req.Files))

	var g errgroup.Group

	for i, f := range req.Files {
		g.Go(func() error {
			data, err := f.Bytes()
			if err != nil {
				return err
			}

			loaded[i] = unit{name: f.Name, data: data, file: true}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return append(units, loaded...), nil
}
