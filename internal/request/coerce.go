package request

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"sizes/internal/compress"
	"sizes/internal/types"
)

const (
	msgCheckbox    = "must be true, false or 'on'"
	msgString      = "expected string"
	msgOnlyFiles   = "files should only contain Files"
	msgMissingUnit = "you must provide at least one of text or files"
)

var digitsRe = regexp.MustCompile(`^\d+$`)

// CheckboxBool coerces an HTML checkbox value. "on" and true are checked,
// absent (nil) and false are not; anything else is an error.
func CheckboxBool(v any) (bool, error) {
	switch val := v.(type) {
	case nil:
		return false, nil
	case bool:
		return val, nil
	case string:
		if val == "on" {
			return true, nil
		}
	}

	return false, errors.New(msgCheckbox)
}

func levelMessage(rng compress.LevelRange) string {
	return fmt.Sprintf("must be between %d and %d, inclusive", rng.Min, rng.Max)
}

// Level coerces a decimal digit string into a level within rng. The second
// return value reports whether a level was supplied at all.
func Level(v any, rng compress.LevelRange) (int, bool, error) {
	if v == nil {
		return 0, false, nil
	}

	s, ok := v.(string)
	if !ok || !digitsRe.MatchString(s) {
		return 0, true, errors.New(levelMessage(rng))
	}

	level, err := strconv.Atoi(s)
	if err != nil || !rng.Contains(level) {
		return 0, true, errors.New(levelMessage(rng))
	}

	return level, true, nil
}

func coerceText(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	default:
		return "", errors.New(msgString)
	}
}

// coerceFiles accepts a single file or a list of files and drops the
// placeholders browsers submit when no file was chosen.
func coerceFiles(v any) ([]types.File, error) {
	var files []types.File

	switch val := v.(type) {
	case nil:
	case types.File:
		files = []types.File{val}
	case []types.File:
		files = val
	case []any:
		files = make([]types.File, 0, len(val))

		for _, item := range val {
			f, ok := item.(types.File)
			if !ok {
				return nil, errors.New(msgOnlyFiles)
			}

			files = append(files, f)
		}
	default:
		return nil, errors.New(msgOnlyFiles)
	}

	kept := make([]types.File, 0, len(files))

	for _, f := range files {
		if f.Name != "" {
			kept = append(kept, f)
		}
	}

	return kept, nil
}
