package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sizes/internal/request"
)

func run(t *testing.T, stdin string, args ...string) (map[string]any, error) {
	t.Helper()

	var out bytes.Buffer

	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))

	err := cmd.Execute()

	var body map[string]any
	if out.Len() > 0 {
		require.NoError(t, json.Unmarshal(out.Bytes(), &body), out.String())
	}

	return body, err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestRootCommands(t *testing.T) {
	names := map[string]bool{}
	for _, cmd := range newRootCmd().Commands() {
		names[cmd.Name()] = true
	}

	for _, want := range []string{"serve", "wc", "sizes"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestWCCommand(t *testing.T) {
	tests := []struct {
		name          string
		stdin         string
		args          func(t *testing.T) []string
		expectedError string
		checkOutput   func(t *testing.T, body map[string]any)
	}{
		{
			name: "text flag",
			args: func(*testing.T) []string { return []string{"wc", "--text", "one two three"} },
			checkOutput: func(t *testing.T, body map[string]any) {
				text := body["text"].(map[string]any)
				assert.Equal(t, 3.0, text["words"])
				assert.Equal(t, 13.0, text["bytes"])
			},
		},
		{
			name: "files keep order",
			args: func(t *testing.T) []string {
				return []string{"wc", writeFile(t, "b.txt", "b\nb"), writeFile(t, "a.txt", "a")}
			},
			checkOutput: func(t *testing.T, body map[string]any) {
				assert.NotContains(t, body, "text")

				files := body["files"].([]any)
				require.Len(t, files, 2)
				assert.Equal(t, "b.txt", files[0].(map[string]any)["name"])
				assert.Equal(t, "a.txt", files[1].(map[string]any)["name"])
				assert.Equal(t, 3.0, body["total"].(map[string]any)["lines"])
			},
		},
		{
			name:  "stdin",
			stdin: "\uFEFFfrom stdin",
			args:  func(*testing.T) []string { return []string{"wc", "-"} },
			checkOutput: func(t *testing.T, body map[string]any) {
				text := body["text"].(map[string]any)
				assert.Equal(t, 2.0, text["words"])
				assert.Equal(t, 10.0, text["chars"])
			},
		},
		{
			name:          "text twice",
			stdin:         "x",
			args:          func(*testing.T) []string { return []string{"wc", "--text", "y", "-"} },
			expectedError: "text given more than once",
		},
		{
			name:          "missing file",
			args:          func(t *testing.T) []string { return []string{"wc", filepath.Join(t.TempDir(), "nope")} },
			expectedError: "failed to stat",
		},
		{
			name:          "nothing to count",
			args:          func(*testing.T) []string { return []string{"wc", "--text", ""} },
			expectedError: "validation failed",
			checkOutput: func(t *testing.T, body map[string]any) {
				assert.Equal(t, []any{"you must provide at least one of text or files"}, body["formErrors"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := run(t, tt.stdin, tt.args(t)...)

			if tt.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
			} else {
				require.NoError(t, err)
			}

			if tt.checkOutput != nil {
				tt.checkOutput(t, body)
			}
		})
	}
}

func TestSizesCommand(t *testing.T) {
	t.Run("enabled algorithms only", func(t *testing.T) {
		path := writeFile(t, "data.txt", strings.Repeat("sizes ", 100))

		body, err := run(t, "", "sizes", "--initial", "--gzip", "--gzip-level", "1", "--text", "hi", path)
		require.NoError(t, err)

		text := body["text"].(map[string]any)
		assert.Equal(t, 2.0, text["initial"])
		assert.Contains(t, text, "gzip")
		assert.NotContains(t, text, "brotli")

		file := body["files"].([]any)[0].(map[string]any)
		assert.Equal(t, "data.txt", file["name"])
		assert.Equal(t, 600.0, file["sizes"].(map[string]any)["initial"])

		algos := body["algorithms"].(map[string]any)
		assert.Equal(t, map[string]any{"enabled": true, "level": 1.0}, algos["gzip"])
		assert.Equal(t, map[string]any{"enabled": false, "level": 11.0}, algos["brotli"])
	})

	t.Run("level out of range", func(t *testing.T) {
		body, err := run(t, "", "sizes", "--text", "hi", "--brotli", "--brotli-level", "12", "--deflate-level", "x")
		require.Error(t, err)

		var verr *request.ValidationError
		require.ErrorAs(t, err, &verr)

		assert.Equal(t, map[string]any{
			"brotliLevel":  []any{"must be between 0 and 11, inclusive"},
			"deflateLevel": []any{"must be between 0 and 9, inclusive"},
		}, body["fieldErrors"])
	})
}

func TestServeRejectsInvalidPort(t *testing.T) {
	_, err := run(t, "", "serve", "--port", "70000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
}
