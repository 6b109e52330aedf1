package webserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"sizes/internal/request"
	"sizes/internal/sizes"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation  ErrorType = "validation"
	ErrorTypeUpload      ErrorType = "upload"
	ErrorTypeFileIO      ErrorType = "file_io"
	ErrorTypeCompression ErrorType = "compression"
	ErrorTypeInternal    ErrorType = "internal"
)

// ErrorResponse represents a structured error response
type ErrorResponse struct {
	Type        ErrorType                `json:"type"`
	Code        string                   `json:"code"`
	Title       string                   `json:"title"`
	Description string                   `json:"description"`
	Details     string                   `json:"details"`
	Suggestions []string                 `json:"suggestions,omitempty"`
	Validation  *request.ValidationError `json:"validation,omitempty"`
}

// UploadError marks a request body that could not be read as a form or JSON
// document.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string {
	return e.Err.Error()
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

func uploadErrorf(format string, args ...any) error {
	return &UploadError{Err: fmt.Errorf(format, args...)}
}

// CategorizeError analyzes an error and returns an appropriate ErrorResponse
func CategorizeError(err error) ErrorResponse {
	if err == nil {
		return ErrorResponse{
			Type:        ErrorTypeInternal,
			Code:        "unknown_error",
			Title:       "Processing failed",
			Description: "The request could not be processed.",
			Details:     "No error details available",
		}
	}

	errMsg := err.Error()
	errMsgLower := strings.ToLower(errMsg)

	var verr *request.ValidationError
	if errors.As(err, &verr) {
		if verr.Fatal() {
			return ErrorResponse{
				Type:        ErrorTypeValidation,
				Code:        "missing_input",
				Title:       "Nothing to analyze",
				Description: "Enter some text or choose at least one file.",
				Details:     errMsg,
				Validation:  verr,
			}
		}

		return ErrorResponse{
			Type:        ErrorTypeValidation,
			Code:        "invalid_fields",
			Title:       "Invalid settings",
			Description: "Some fields have values that cannot be used.",
			Details:     errMsg,
			Suggestions: []string{
				"Check the highlighted fields",
				"Compression levels are whole numbers within the algorithm's range",
			},
			Validation: verr,
		}
	}

	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return ErrorResponse{
			Type:        ErrorTypeUpload,
			Code:        "upload_too_large",
			Title:       "Upload too large",
			Description: fmt.Sprintf("The request body exceeds %d bytes.", maxBytes.Limit),
			Details:     errMsg,
			Suggestions: []string{
				"Send fewer or smaller files",
			},
		}
	}

	var uerr *UploadError
	if errors.As(err, &uerr) {
		if strings.Contains(errMsgLower, "too many files") {
			return ErrorResponse{
				Type:        ErrorTypeUpload,
				Code:        "too_many_files",
				Title:       "Too many files",
				Description: "The request carries more files than the server accepts.",
				Details:     errMsg,
				Suggestions: []string{
					"Split the files across several requests",
				},
			}
		}

		return ErrorResponse{
			Type:        ErrorTypeUpload,
			Code:        "upload_form_error",
			Title:       "Upload failed",
			Description: "The request body could not be read.",
			Details:     errMsg,
			Suggestions: []string{
				"Send multipart/form-data or an application/json object",
				"Refresh the page and try again",
			},
		}
	}

	// Compression errors
	var merr *sizes.MeasureError
	if errors.As(err, &merr) {
		return ErrorResponse{
			Type:        ErrorTypeCompression,
			Code:        "compression_error",
			Title:       "Compression failed",
			Description: "A unit could not be compressed.",
			Details:     errMsg,
		}
	}

	// File I/O errors
	if strings.Contains(errMsgLower, "file") &&
		(strings.Contains(errMsgLower, "open") || strings.Contains(errMsgLower, "read")) {
		return ErrorResponse{
			Type:        ErrorTypeFileIO,
			Code:        "file_read_error",
			Title:       "File could not be read",
			Description: "An uploaded file could not be read.",
			Details:     errMsg,
			Suggestions: []string{
				"Check that the file is not corrupted",
				"Try uploading it again",
			},
		}
	}

	// Default fallback for unrecognized errors
	return ErrorResponse{
		Type:        ErrorTypeInternal,
		Code:        "processing_error",
		Title:       "Processing failed",
		Description: "The request could not be processed.",
		Details:     errMsg,
		Suggestions: []string{
			"Try again",
		},
	}
}

// StatusCode returns the HTTP status for err: 422 for validation failures,
// 400 for unreadable uploads and 500 otherwise.
func StatusCode(err error) int {
	var verr *request.ValidationError
	if errors.As(err, &verr) {
		return http.StatusUnprocessableEntity
	}

	var uerr *UploadError
	if errors.As(err, &uerr) {
		return http.StatusBadRequest
	}

	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return http.StatusBadRequest
	}

	return http.StatusInternalServerError
}

// WriteErrorResponse writes a structured error response as JSON
func WriteErrorResponse(w http.ResponseWriter, err error, statusCode int) {
	errorResp := CategorizeError(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if jsonErr := json.NewEncoder(w).Encode(errorResp); jsonErr != nil {
		fmt.Fprintf(w, "Error: %v", err)
	}
}

// WriteError writes err with the status StatusCode picks for it.
func WriteError(w http.ResponseWriter, err error) {
	WriteErrorResponse(w, err, StatusCode(err))
}
