// Package request validates loosely typed form input and coerces it into
// the strict word-count and sizes requests.
//
// Normalization runs in two phases. The input fields (text, files) are
// coerced first and the request is rejected outright when neither carries
// anything to analyze. Only then are the remaining fields validated, with
// every field error collected before the request is rejected as a whole.
package request

import (
	"strconv"

	"sizes/internal/compress"
	"sizes/internal/types"
	"sizes/internal/wc"
)

// Field names as submitted by the form.
const (
	FieldText           = "text"
	FieldFiles          = "files"
	FieldInitialEnabled = "initialEnabled"
)

// EnabledField returns the name of the enablement checkbox of alg.
func EnabledField(alg compress.Algorithm) string {
	return string(alg) + "Enabled"
}

// LevelField returns the name of the level input of alg.
func LevelField(alg compress.Algorithm) string {
	return string(alg) + "Level"
}

// RawRequest maps field names to string, bool, types.File, []types.File or
// []any values. A missing key and a nil value both mean absent.
type RawRequest map[string]any

// WCRequest is a validated word-count request. At least one of Text and
// Files is non-empty and no file has an empty name.
type WCRequest struct {
	Text  string
	Files []types.File
}

// HasText reports whether text was submitted.
func (r WCRequest) HasText() bool {
	return r.Text != ""
}

// WC converts the request into the aggregation input.
func (r WCRequest) WC() wc.Request {
	return wc.Request{Text: r.Text, Files: r.Files}
}

// AlgoConfig is the resolved configuration of one compression algorithm.
type AlgoConfig struct {
	Enabled bool `json:"enabled"`
	Level   int  `json:"level"`
}

// SizesRequest is a validated sizes request with every default applied.
type SizesRequest struct {
	WCRequest
	InitialEnabled bool
	Brotli         AlgoConfig
	Gzip           AlgoConfig
	Deflate        AlgoConfig
}

// Config returns the resolved configuration of alg.
func (r SizesRequest) Config(alg compress.Algorithm) AlgoConfig {
	switch alg {
	case compress.Brotli:
		return r.Brotli
	case compress.Gzip:
		return r.Gzip
	case compress.Deflate:
		return r.Deflate
	default:
		return AlgoConfig{}
	}
}

func (r *SizesRequest) setConfig(alg compress.Algorithm, cfg AlgoConfig) {
	switch alg {
	case compress.Brotli:
		r.Brotli = cfg
	case compress.Gzip:
		r.Gzip = cfg
	case compress.Deflate:
		r.Deflate = cfg
	}
}

// Raw renders the request back into raw form with every default explicit.
func (r SizesRequest) Raw() RawRequest {
	raw := RawRequest{
		FieldFiles:          r.Files,
		FieldInitialEnabled: r.InitialEnabled,
	}

	if r.HasText() {
		raw[FieldText] = r.Text
	}

	for _, alg := range compress.Algorithms {
		cfg := r.Config(alg)
		raw[EnabledField(alg)] = cfg.Enabled
		raw[LevelField(alg)] = strconv.Itoa(cfg.Level)
	}

	return raw
}

func normalizeInput(raw RawRequest) (WCRequest, *ValidationError) {
	verr := newValidationError()

	text, err := coerceText(raw[FieldText])
	if err != nil {
		verr.addField(FieldText, err.Error())
	}

	files, err := coerceFiles(raw[FieldFiles])
	if err != nil {
		verr.addField(FieldFiles, err.Error())
	}

	if text == "" && len(files) == 0 {
		fatal := newValidationError()
		fatal.FormErrors = append(fatal.FormErrors, msgMissingUnit)

		return WCRequest{}, fatal
	}

	return WCRequest{Text: text, Files: files}, verr
}

// NormalizeWC validates a word-count request.
func NormalizeWC(raw RawRequest) (WCRequest, error) {
	req, verr := normalizeInput(raw)
	if !verr.empty() {
		return WCRequest{}, verr
	}

	return req, nil
}

// NormalizeSizes validates a sizes request and resolves the configuration
// of every compression algorithm. Omitted levels default to the maximum of
// the algorithm and omitted checkboxes to false.
func NormalizeSizes(raw RawRequest) (SizesRequest, error) {
	input, verr := normalizeInput(raw)
	if len(verr.FormErrors) > 0 {
		return SizesRequest{}, verr
	}

	req := SizesRequest{WCRequest: input}

	for _, alg := range compress.Algorithms {
		cfg, ok := resolveAlgo(raw, alg, verr)
		if ok {
			req.setConfig(alg, cfg)
		}
	}

	initial, err := CheckboxBool(raw[FieldInitialEnabled])
	if err != nil {
		verr.addField(FieldInitialEnabled, err.Error())
	}

	if !verr.empty() {
		return SizesRequest{}, verr
	}

	req.InitialEnabled = initial

	return req, nil
}

// resolveAlgo validates both fields of alg, recording any problem in verr.
func resolveAlgo(raw RawRequest, alg compress.Algorithm, verr *ValidationError) (AlgoConfig, bool) {
	rng, err := compress.Range(alg)
	if err != nil {
		verr.FormErrors = append(verr.FormErrors, err.Error())
		return AlgoConfig{}, false
	}

	ok := true

	level, supplied, err := Level(raw[LevelField(alg)], rng)
	if err != nil {
		verr.addField(LevelField(alg), err.Error())

		ok = false
	}

	if !supplied {
		level = rng.Max
	}

	enabled, err := CheckboxBool(raw[EnabledField(alg)])
	if err != nil {
		verr.addField(EnabledField(alg), err.Error())

		ok = false
	}

	return AlgoConfig{Enabled: enabled, Level: level}, ok
}
