package middleware

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"
)

// responseWriter records what the handler sent for the access log.
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
	wroteHeader  bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.statusCode = code
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack lets the session websocket upgrade through the logger.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("%w: response writer cannot be hijacked", http.ErrNotSupported)
	}
	rw.wroteHeader = true
	rw.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// artifactPrefix is where rendered PNG, text and MP4 files are served.
const artifactPrefix = "/outputs/"

// LoggingConfig controls the access log.
type LoggingConfig struct {
	// SkipPaths are path prefixes that are never logged.
	SkipPaths []string
	// LogStaticFiles logs fetches of rendered artifacts under /outputs/.
	LogStaticFiles  bool
	LogHealthChecks bool
	// Output receives log lines. Nil uses the standard logger.
	Output io.Writer
}

// DefaultLoggingConfig skips artifact fetches, which the browser issues for
// every preview, and logs everything else.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{LogHealthChecks: true}
}

// accessFields is the W3C Extended Log Format header for the lines written
// by accessLog. cs-bytes is the upload size, the main cost driver here.
const accessFields = "#Fields: date time c-ip cs-method cs-uri-stem cs-uri-query sc-status cs-bytes sc-bytes time-taken sc(Content-Encoding) cs(User-Agent) x-session"

var healthCheckPaths = map[string]bool{
	"/api/health": true,
	"/livez":      true,
	"/readyz":     true,
	"/version":    true,
}

type accessLog struct {
	out        *log.Logger
	fieldsOnce sync.Once
}

func newAccessLog(config LoggingConfig) *accessLog {
	out := log.Default()
	if config.Output != nil {
		out = log.New(config.Output, "", 0)
	}
	return &accessLog{out: out}
}

// sanitizeLogField drops control characters so a client cannot forge log
// lines or send terminal escapes. Line breaks become spaces.
func sanitizeLogField(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r':
			return ' '
		case r == '\t':
			return r
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, s)
}

// Logger returns middleware that writes one W3C access log line per request.
func Logger(config LoggingConfig) func(http.Handler) http.Handler {
	access := newAccessLog(config)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if shouldSkip(r.URL.Path, config) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			wrapped := newResponseWriter(w)
			next.ServeHTTP(wrapped, r)
			access.write(r, wrapped, time.Since(start))
		})
	}
}

func (a *accessLog) write(r *http.Request, rw *responseWriter, took time.Duration) {
	a.fieldsOnce.Do(func() {
		a.out.Println(accessFields)
	})

	now := time.Now().UTC()
	requestBytes := "-"
	if r.ContentLength >= 0 {
		requestBytes = strconv.FormatInt(r.ContentLength, 10)
	}

	// Every client-controlled value goes through sanitizeLogField
	a.out.Println(strings.Join([]string{
		now.Format("2006-01-02"),
		now.Format("15:04:05"),
		orDash(sanitizeLogField(getClientIP(r))),
		orDash(sanitizeLogField(r.Method)),
		orDash(escapeW3CField(sanitizeLogField(r.URL.Path))),
		orDash(escapeW3CField(sanitizeLogField(r.URL.RawQuery))),
		strconv.Itoa(rw.statusCode),
		requestBytes,
		strconv.FormatInt(rw.bytesWritten, 10),
		strconv.FormatInt(took.Milliseconds(), 10),
		orDash(rw.Header().Get("Content-Encoding")),
		orDash(escapeW3CField(sanitizeLogField(r.Header.Get("User-Agent")))),
		orDash(escapeW3CField(sanitizeLogField(rw.Header().Get(SessionHeader)))),
	}, " "))
}

func shouldSkip(path string, config LoggingConfig) bool {
	for _, prefix := range config.SkipPaths {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	if !config.LogHealthChecks && healthCheckPaths[path] {
		return true
	}
	return !config.LogStaticFiles && strings.HasPrefix(path, artifactPrefix)
}

// getClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then
// the peer address.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// escapeW3CField quotes values containing separators, doubling any quotes.
func escapeW3CField(s string) string {
	if !strings.ContainsAny(s, " \t\"") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
