package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"sizes/internal/compress"
	"sizes/internal/config"
	"sizes/internal/request"
	"sizes/internal/sizes"
	"sizes/internal/types"
	"sizes/internal/wc"
)

const stdinArg = "-"

func newWCCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wc [files...]",
		Short: "Count bytes, characters, words and lines",
		Long: `Count bytes, characters, words and lines of text and files and estimate
their reading time. The result is printed as JSON.

Examples:
  # Count a string
  sizes wc --text "hello world"

  # Count files and a string together
  sizes wc --text "intro" README.md notes.txt

  # Count stdin
  cat essay.txt | sizes wc -`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			raw, err := rawFromArgs(cmd, args)
			if err != nil {
				return err
			}

			req, err := request.NormalizeWC(raw)
			if err != nil {
				return reportValidation(cmd.OutOrStdout(), err)
			}

			result, err := wc.NewCounter(cfg.Reading.WordsPerMinute).Do(req.WC())
			if err != nil {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().String(request.FieldText, "", "text to analyze")

	return cmd
}

func newSizesCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sizes [files...]",
		Short: "Measure compressed sizes",
		Long: `Measure how large text and files become under brotli, gzip and deflate,
alongside their word counts. Only the enabled algorithms are reported; a
level left unset defaults to the algorithm's maximum.

Examples:
  # Uncompressed and gzip sizes of a file
  sizes sizes --initial --gzip README.md

  # Brotli at level 5 over stdin
  cat page.html | sizes sizes --brotli --brotli-level 5 -`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			raw, err := rawFromArgs(cmd, args)
			if err != nil {
				return err
			}

			if err := addSizesFlags(cmd, raw); err != nil {
				return err
			}

			req, err := request.NormalizeSizes(raw)
			if err != nil {
				return reportValidation(cmd.OutOrStdout(), err)
			}

			runner := sizes.NewRunner(sizes.WithCounter(wc.NewCounter(cfg.Reading.WordsPerMinute)))

			result, err := runner.Do(req)
			if err != nil {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().String(request.FieldText, "", "text to analyze")
	cmd.Flags().Bool("initial", false, "report the uncompressed size")

	for _, alg := range compress.Algorithms {
		rng, _ := compress.Range(alg)

		cmd.Flags().Bool(string(alg), false, fmt.Sprintf("measure the %s size", alg))
		cmd.Flags().String(levelFlag(alg), "",
			fmt.Sprintf("%s level from %d to %d (default %d)", alg, rng.Min, rng.Max, rng.Max))
	}

	return cmd
}

func levelFlag(alg compress.Algorithm) string {
	return string(alg) + "-level"
}

// rawFromArgs builds the input fields. Flags are only copied when set so
// that an unset --text stays absent; "-" reads the text from stdin.
func rawFromArgs(cmd *cobra.Command, args []string) (request.RawRequest, error) {
	raw := request.RawRequest{}

	if cmd.Flags().Changed(request.FieldText) {
		text, err := cmd.Flags().GetString(request.FieldText)
		if err != nil {
			return nil, err
		}

		raw[request.FieldText] = text
	}

	files := make([]types.File, 0, len(args))

	for _, arg := range args {
		if arg == stdinArg {
			if _, ok := raw[request.FieldText]; ok {
				return nil, errors.New("text given more than once: use either --text or - for stdin")
			}

			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return nil, fmt.Errorf("failed to read from stdin: %w", err)
			}

			raw[request.FieldText] = types.DecodeText(data)

			continue
		}

		f, err := types.FileFromPath(arg)
		if err != nil {
			return nil, err
		}

		files = append(files, f)
	}

	if len(files) > 0 {
		raw[request.FieldFiles] = files
	}

	return raw, nil
}

// addSizesFlags copies the set compression flags into raw. Levels are kept
// as strings so they are validated like form input.
func addSizesFlags(cmd *cobra.Command, raw request.RawRequest) error {
	flags := cmd.Flags()

	if flags.Changed("initial") {
		v, err := flags.GetBool("initial")
		if err != nil {
			return err
		}

		raw[request.FieldInitialEnabled] = v
	}

	for _, alg := range compress.Algorithms {
		if flags.Changed(string(alg)) {
			v, err := flags.GetBool(string(alg))
			if err != nil {
				return err
			}

			raw[request.EnabledField(alg)] = v
		}

		if flags.Changed(levelFlag(alg)) {
			v, err := flags.GetString(levelFlag(alg))
			if err != nil {
				return err
			}

			raw[request.LevelField(alg)] = v
		}
	}

	return nil
}

// reportValidation prints the flattened validation errors and returns err
// so the command exits non-zero.
func reportValidation(w io.Writer, err error) error {
	var verr *request.ValidationError
	if errors.As(err, &verr) {
		if writeErr := writeJSON(w, verr); writeErr != nil {
			return writeErr
		}
	}

	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	return nil
}
