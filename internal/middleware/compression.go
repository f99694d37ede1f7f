package middleware

import (
	"compress/gzip"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"sync"
)

// CompressionConfig controls which responses are gzipped.
type CompressionConfig struct {
	// MinSize is the smallest body worth compressing.
	MinSize int
	// Level is a compress/gzip level. Invalid levels use gzip.BestSpeed.
	Level int
	// Types lists the media types that are compressed.
	Types []string
	// SkipPrefixes lists URL paths that are never compressed.
	SkipPrefixes []string
}

// DefaultCompressionConfig compresses API JSON and leaves rendered
// artifacts alone. PNG and MP4 are already compressed, and clients seek in
// videos and grid text with Range requests that gzip would break.
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		MinSize: 1024,
		Level:   gzip.BestSpeed,
		Types:   []string{"application/json", "text/plain", "text/html"},
		SkipPrefixes: []string{
			"/outputs/",
			"/api/image/download/",
			"/api/video/download/",
		},
	}
}

// bypass reports whether r must be served without compression.
func (c CompressionConfig) bypass(r *http.Request) bool {
	if r.Method == http.MethodHead || r.Header.Get("Range") != "" || r.Header.Get("Upgrade") != "" {
		return true
	}
	for _, prefix := range c.SkipPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}
	return !acceptsGzip(r.Header.Get("Accept-Encoding"))
}

func (c CompressionConfig) compressible(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	for _, t := range c.Types {
		if mediaType == t {
			return true
		}
	}
	return false
}

// acceptsGzip parses an Accept-Encoding header, honouring q=0.
func acceptsGzip(header string) bool {
	for _, part := range strings.Split(header, ",") {
		coding, params, _ := strings.Cut(part, ";")
		coding = strings.ToLower(strings.TrimSpace(coding))
		if coding != "gzip" && coding != "*" {
			continue
		}
		q := 1.0
		if v, ok := strings.CutPrefix(strings.TrimSpace(params), "q="); ok {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				q = parsed
			}
		}
		return q > 0
	}
	return false
}

// Compression returns a middleware that gzips eligible responses.
func Compression(config CompressionConfig) func(http.Handler) http.Handler {
	level := config.Level
	if _, err := gzip.NewWriterLevel(io.Discard, level); err != nil {
		level = gzip.BestSpeed
	}
	pool := &sync.Pool{New: func() any {
		gz, _ := gzip.NewWriterLevel(io.Discard, level)
		return gz
	}}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if config.bypass(r) {
				next.ServeHTTP(w, r)
				return
			}

			cw := &compressWriter{ResponseWriter: w, config: &config, pool: pool}
			defer cw.close()
			next.ServeHTTP(cw, r)
		})
	}
}

// compressWriter holds back the first MinSize bytes of a body so that small
// responses go out unchanged. Once the choice is made it is final.
type compressWriter struct {
	http.ResponseWriter
	config *CompressionConfig
	pool   *sync.Pool

	status  int
	pending []byte
	decided bool
	gz      *gzip.Writer
}

func (cw *compressWriter) WriteHeader(status int) {
	if cw.decided || cw.status != 0 {
		return
	}
	cw.status = status
	if !bodyAllowed(status) {
		_ = cw.decide()
	}
}

func (cw *compressWriter) Write(p []byte) (int, error) {
	if cw.decided {
		if cw.gz != nil {
			return cw.gz.Write(p)
		}
		return cw.ResponseWriter.Write(p)
	}

	cw.pending = append(cw.pending, p...)
	if len(cw.pending) >= cw.config.MinSize {
		if err := cw.decide(); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// decide sends the header and whatever body is pending, compressed or not.
func (cw *compressWriter) decide() error {
	cw.decided = true
	if cw.status == 0 {
		cw.status = http.StatusOK
	}

	h := cw.Header()
	if h.Get("Content-Type") == "" && len(cw.pending) > 0 {
		h.Set("Content-Type", http.DetectContentType(cw.pending))
	}
	eligible := bodyAllowed(cw.status) &&
		h.Get("Content-Encoding") == "" &&
		cw.config.compressible(h.Get("Content-Type"))
	if eligible {
		h.Add("Vary", "Accept-Encoding")
	}

	pending := cw.pending
	cw.pending = nil

	if !eligible || len(pending) < cw.config.MinSize {
		cw.ResponseWriter.WriteHeader(cw.status)
		if len(pending) == 0 {
			return nil
		}
		_, err := cw.ResponseWriter.Write(pending)
		return err
	}

	h.Del("Content-Length")
	h.Set("Content-Encoding", "gzip")
	cw.gz = cw.pool.Get().(*gzip.Writer)
	cw.gz.Reset(cw.ResponseWriter)
	cw.ResponseWriter.WriteHeader(cw.status)
	_, err := cw.gz.Write(pending)
	return err
}

func (cw *compressWriter) close() {
	if !cw.decided {
		_ = cw.decide()
	}
	if cw.gz != nil {
		_ = cw.gz.Close()
		cw.pool.Put(cw.gz)
		cw.gz = nil
	}
}

// Flush commits to a decision so streaming handlers are not held back.
func (cw *compressWriter) Flush() {
	if !cw.decided {
		_ = cw.decide()
	}
	if cw.gz != nil {
		_ = cw.gz.Flush()
	}
	if f, ok := cw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (cw *compressWriter) Unwrap() http.ResponseWriter {
	return cw.ResponseWriter
}

func bodyAllowed(status int) bool {
	return status >= 200 && status != http.StatusNoContent && status != http.StatusNotModified
}
