package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// captureLogs installs a JSON logger writing to a buffer at level and
// restores the previous logger at cleanup.
func captureLogs(t *testing.T, level Level) *bytes.Buffer {
	t.Helper()
	oldLogger := defaultLogger
	oldDefault := slog.Default()
	t.Cleanup(func() {
		defaultLogger = oldLogger
		slog.SetDefault(oldDefault)
	})

	var buf bytes.Buffer
	InitLogger(&buf, level, FormatJSON)
	return &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid JSON log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warn", LevelWarn, false},
		{"warning", LevelWarn, false},
		{" error ", LevelError, false},
		{"verbose", LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"", FormatJSON, false},
		{"Text", FormatText, false},
		{"yaml", FormatJSON, true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestInitLogger_LevelFilter(t *testing.T) {
	buf := captureLogs(t, LevelWarn)

	GetLogger().Info("hidden")
	GetLogger().Warn("shown")

	lines := decodeLines(t, buf)
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %s", len(lines), buf.String())
	}
	if lines[0]["msg"] != "shown" {
		t.Errorf("msg = %v, want shown", lines[0]["msg"])
	}
}

func TestInitLogger_SetsDefault(t *testing.T) {
	buf := captureLogs(t, LevelDebug)

	slog.Debug("via slog")
	if !strings.Contains(buf.String(), "via slog") {
		t.Errorf("slog.Default not redirected: %q", buf.String())
	}
}

func TestInitLogger_TextFormat(t *testing.T) {
	oldLogger := defaultLogger
	oldDefault := slog.Default()
	defer func() {
		defaultLogger = oldLogger
		slog.SetDefault(oldDefault)
	}()

	var buf bytes.Buffer
	InitLogger(&buf, LevelInfo, FormatText)
	GetLogger().Info("hello", "k", "v")

	if out := buf.String(); !strings.Contains(out, "msg=hello") || !strings.Contains(out, "k=v") {
		t.Errorf("text output = %q", out)
	}
}

func TestRequestIDContext(t *testing.T) {
	ctx := context.Background()
	if got := GetRequestID(ctx); got != "" {
		t.Errorf("GetRequestID(empty) = %q", got)
	}
	ctx = WithRequestID(ctx, "abc123")
	if got := GetRequestID(ctx); got != "abc123" {
		t.Errorf("GetRequestID = %q, want abc123", got)
	}
}

func TestBookEvent_IncludesRequestID(t *testing.T) {
	buf := captureLogs(t, LevelInfo)

	BookEvent(WithRequestID(context.Background(), "req-1"), "uploaded", "book-9", "title", "Sample")

	lines := decodeLines(t, buf)
	if len(lines) != 1 {
		t.Fatalf("got %d lines", len(lines))
	}
	l := lines[0]
	if l["msg"] != "book_event" || l["event"] != "uploaded" || l["book_id"] != "book-9" {
		t.Errorf("unexpected record: %v", l)
	}
	if l["request_id"] != "req-1" {
		t.Errorf("request_id = %v, want req-1", l["request_id"])
	}
}

func TestCombinedMiddleware(t *testing.T) {
	buf := captureLogs(t, LevelInfo)

	var seenID string
	h := CombinedMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/books", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seenID == "" || len(seenID) != 16 {
		t.Errorf("generated request ID = %q, want 16 hex chars", seenID)
	}
	if rec.Header().Get("X-Request-ID") != seenID {
		t.Errorf("X-Request-ID header = %q, want %q", rec.Header().Get("X-Request-ID"), seenID)
	}

	lines := decodeLines(t, buf)
	if len(lines) != 1 {
		t.Fatalf("got %d lines", len(lines))
	}
	l := lines[0]
	if l["msg"] != "http_request" || l["path"] != "/api/books" {
		t.Errorf("unexpected record: %v", l)
	}
	if code, _ := l["status_code"].(float64); int(code) != http.StatusTeapot {
		t.Errorf("status_code = %v, want %d", l["status_code"], http.StatusTeapot)
	}
}

func TestRequestIDMiddleware_ReusesHeader(t *testing.T) {
	var seenID string
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "upstream-7")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if seenID != "upstream-7" {
		t.Errorf("request ID = %q, want upstream-7", seenID)
	}
}
