package webserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sizes/internal/request"
	"sizes/internal/sizes"
)

func TestCategorizeError(t *testing.T) {
	fieldErr := &request.ValidationError{
		FormErrors:  []string{},
		FieldErrors: map[string][]string{"gzipLevel": {"must be between 0 and 9, inclusive"}},
	}
	fatalErr := &request.ValidationError{
		FormErrors:  []string{"you must provide at least one of text or files"},
		FieldErrors: map[string][]string{},
	}

	tests := []struct {
		name         string
		err          error
		expectedType ErrorType
		expectedCode string
		status       int
	}{
		{name: "nil", err: nil, expectedType: ErrorTypeInternal, expectedCode: "unknown_error", status: http.StatusInternalServerError},
		{name: "field validation", err: fieldErr, expectedType: ErrorTypeValidation, expectedCode: "invalid_fields", status: http.StatusUnprocessableEntity},
		{name: "missing input", err: fatalErr, expectedType: ErrorTypeValidation, expectedCode: "missing_input", status: http.StatusUnprocessableEntity},
		{name: "wrapped validation", err: fmt.Errorf("normalize: %w", fieldErr), expectedType: ErrorTypeValidation, expectedCode: "invalid_fields", status: http.StatusUnprocessableEntity},
		{name: "upload", err: uploadErrorf("form parsing error: %w", errors.New("boom")), expectedType: ErrorTypeUpload, expectedCode: "upload_form_error", status: http.StatusBadRequest},
		{name: "too many files", err: uploadErrorf("too many files: 3 (max 2)"), expectedType: ErrorTypeUpload, expectedCode: "too_many_files", status: http.StatusBadRequest},
		{name: "body too large", err: &UploadError{Err: fmt.Errorf("invalid JSON body: %w", &http.MaxBytesError{Limit: 10})}, expectedType: ErrorTypeUpload, expectedCode: "upload_too_large", status: http.StatusBadRequest},
		{name: "compression", err: &sizes.MeasureError{Unit: "a.txt", Err: errors.New("failed to compress with gzip: short write")}, expectedType: ErrorTypeCompression, expectedCode: "compression_error", status: http.StatusInternalServerError},
		{name: "compression of a file named like a read", err: &sizes.MeasureError{Unit: "read-file.txt", Err: errors.New("short write")}, expectedType: ErrorTypeCompression, expectedCode: "compression_error", status: http.StatusInternalServerError},
		{name: "file read", err: errors.New(`failed to read file "a.txt": unexpected EOF`), expectedType: ErrorTypeFileIO, expectedCode: "file_read_error", status: http.StatusInternalServerError},
		{name: "file read of a compressed file", err: fmt.Errorf("failed to read file 1: %w", errors.New(`failed to read file "compressed.log": unexpected EOF`)), expectedType: ErrorTypeFileIO, expectedCode: "file_read_error", status: http.StatusInternalServerError},
		{name: "untyped compress message", err: errors.New("failed to compress with gzip: short write"), expectedType: ErrorTypeInternal, expectedCode: "processing_error", status: http.StatusInternalServerError},
		{name: "other", err: errors.New("something odd"), expectedType: ErrorTypeInternal, expectedCode: "processing_error", status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := CategorizeError(tt.err)

			assert.Equal(t, tt.expectedType, resp.Type)
			assert.Equal(t, tt.expectedCode, resp.Code)
			assert.NotEmpty(t, resp.Title)

			if tt.err != nil {
				assert.Equal(t, tt.err.Error(), resp.Details)
				assert.Equal(t, tt.status, StatusCode(tt.err))
			}

			if tt.expectedType == ErrorTypeValidation {
				assert.NotNil(t, resp.Validation)
			} else {
				assert.Nil(t, resp.Validation)
			}
		})
	}
}

func TestWriteErrorResponse(t *testing.T) {
	w := httptest.NewRecorder()

	WriteError(w, &request.ValidationError{
		FormErrors:  []string{},
		FieldErrors: map[string][]string{"brotliLevel": {"must be between 0 and 11, inclusive"}},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body struct {
		Type       ErrorType `json:"type"`
		Validation struct {
			FormErrors  []string            `json:"formErrors"`
			FieldErrors map[string][]string `json:"fieldErrors"`
		} `json:"validation"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	assert.Equal(t, ErrorTypeValidation, body.Type)
	assert.Equal(t, []string{}, body.Validation.FormErrors)
	assert.Equal(t, []string{"must be between 0 and 11, inclusive"}, body.Validation.FieldErrors["brotliLevel"])
}
