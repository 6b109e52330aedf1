package webserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sizes/internal/request"
	"sizes/internal/types"
)

func TestSecurity(t *testing.T) {
	t.Run("SanitizeFilename", func(t *testing.T) {
		tests := []struct {
			input    string
			expected string
		}{
			{"normal.txt", "normal.txt"},
			{"../../../etc/passwd", "etcpasswd"},
			{"file<script>.md", "filescript.md"},
			{"C:\\Users\\notes.txt", "CUsersnotes.txt"},
			{"  spaced name.txt  ", "spaced name.txt"},
			{"", "upload"},
			{"...", "."},
			{"///", "upload"},
			{"日本語.txt", "日本語.txt"},
		}

		for _, tt := range tests {
			t.Run(tt.input, func(t *testing.T) {
				assert.Equal(t, tt.expected, SanitizeFilename(tt.input))
			})
		}
	})

	t.Run("CountFiles", func(t *testing.T) {
		tests := []struct {
			name     string
			raw      request.RawRequest
			expected int
		}{
			{name: "absent", raw: request.RawRequest{}, expected: 0},
			{name: "single", raw: request.RawRequest{"files": types.NewFile("a", nil)}, expected: 1},
			{name: "typed list", raw: request.RawRequest{"files": []types.File{types.NewFile("a", nil), types.NewFile("b", nil)}}, expected: 2},
			{name: "loose list", raw: request.RawRequest{"files": []any{"x", 1, types.NewFile("a", nil)}}, expected: 3},
			{name: "wrong type", raw: request.RawRequest{"files": "nope"}, expected: 0},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				assert.Equal(t, tt.expected, CountFiles(tt.raw))
			})
		}
	})

	t.Run("ValidateUpload", func(t *testing.T) {
		files := []types.File{
			types.NewFile("../secret.txt", []byte("x")),
			types.NewFile("", nil),
		}
		raw := request.RawRequest{"files": files}

		require.NoError(t, ValidateUpload(raw, 2))
		assert.Equal(t, "secret.txt", files[0].Name)
		assert.Equal(t, "", files[1].Name, "empty names are left for the normalizer")

		single := request.RawRequest{"files": types.NewFile("a/b", nil)}
		require.NoError(t, ValidateUpload(single, 1))
		assert.Equal(t, "ab", single["files"].(types.File).Name)

		loose := request.RawRequest{"files": []any{types.NewFile("x|y", nil), "other"}}
		require.NoError(t, ValidateUpload(loose, 5))
		assert.Equal(t, "xy", loose["files"].([]any)[0].(types.File).Name)
		assert.Equal(t, "other", loose["files"].([]any)[1])

		err := ValidateUpload(raw, 1)
		require.Error(t, err)

		var uerr *UploadError
		assert.ErrorAs(t, err, &uerr)
		assert.Contains(t, err.Error(), "too many files: 2 (max 1)")
	})
}
