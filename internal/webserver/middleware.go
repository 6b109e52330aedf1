package webserver

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"sizes/internal/compress"
	"sizes/internal/metrics"
)

const (
	// RequestIDHeader carries the request id in both directions.
	RequestIDHeader = "X-Request-ID"

	responseBrotliLevel = 5
	responseGzipLevel   = 6
)

// compressResponseWriter starts the encoder once the status is known.
// Responses that cannot carry a body are passed through untouched.
type compressResponseWriter struct {
	http.ResponseWriter
	encoding    string
	encoder     io.WriteCloser
	wroteHeader bool
}

func bodyAllowed(code int) bool {
	return code != http.StatusNoContent && code != http.StatusNotModified
}

func (w *compressResponseWriter) WriteHeader(code int) {
	// informational responses precede the final header
	if code < http.StatusOK {
		w.ResponseWriter.WriteHeader(code)
		return
	}

	if !w.wroteHeader {
		w.wroteHeader = true

		if bodyAllowed(code) {
			w.startEncoder()
		}
	}

	w.ResponseWriter.WriteHeader(code)
}

func (w *compressResponseWriter) startEncoder() {
	encoder, err := newEncoder(w.ResponseWriter, w.encoding)
	if err != nil {
		slog.Error("Failed to create response encoder", "encoding", w.encoding, "error", err)
		return
	}

	w.encoder = encoder

	// handlers such as http.FileServer set the uncompressed length
	w.Header().Del("Content-Length")
	w.Header().Set("Content-Encoding", w.encoding)
}

func (w *compressResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}

	if w.encoder == nil {
		return w.ResponseWriter.Write(b)
	}

	return w.encoder.Write(b)
}

func (w *compressResponseWriter) Close() error {
	if w.encoder == nil {
		return nil
	}

	return w.encoder.Close()
}

// negotiateEncoding picks the response encoding from Accept-Encoding,
// preferring brotli, then zstd, then gzip.
func negotiateEncoding(acceptEncoding string) string {
	offered := map[string]bool{}

	for _, part := range strings.Split(acceptEncoding, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if strings.ReplaceAll(strings.TrimSpace(params), " ", "") == "q=0" {
			continue
		}

		offered[strings.ToLower(strings.TrimSpace(name))] = true
	}

	for _, enc := range []string{"br", "zstd", "gzip"} {
		if offered[enc] {
			return enc
		}
	}

	return ""
}

func newEncoder(w io.Writer, encoding string) (io.WriteCloser, error) {
	switch encoding {
	case "br":
		return compress.NewWriter(w, compress.Brotli, responseBrotliLevel)
	case "gzip":
		return compress.NewWriter(w, compress.Gzip, responseGzipLevel)
	default:
		return zstd.NewWriter(w,
			zstd.WithEncoderLevel(zstd.SpeedBetterCompression),
			zstd.WithWindowSize(1<<23))
	}
}

func CompressionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Accept-Encoding")

		encoding := negotiateEncoding(r.Header.Get("Accept-Encoding"))
		if encoding == "" || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}

		cw := &compressResponseWriter{ResponseWriter: w, encoding: encoding}
		defer func() {
			if err := cw.Close(); err != nil {
				slog.Error("Failed to finish response encoding", "encoding", encoding, "error", err)
			}
		}()

		next.ServeHTTP(cw, r)
	})
}

type requestIDKey struct{}

// RequestIDFromContext returns the id assigned by RequestIDMiddleware.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestIDMiddleware assigns every request an id, reusing a client supplied
// X-Request-ID when present, and echoes it in the response.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}

	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}

	return r.ResponseWriter.Write(b)
}

// LoggingMiddleware logs each finished request and records it in m when m
// is not nil. The route label is the matched mux pattern.
func LoggingMiddleware(m *metrics.Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r)

		if rec.status == 0 {
			rec.status = http.StatusOK
		}

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}

		elapsed := time.Since(start)

		slog.Info("Request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"route", route,
			"status", rec.status,
			"duration", elapsed,
			"request_id", RequestIDFromContext(r.Context()),
		)

		if m != nil {
			m.ObserveRequest(route, rec.status, elapsed)
		}
	})
}
