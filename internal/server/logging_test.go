package server_test

import (
	"context"
	"log/slog"
	"net/http"
	"testing"

	"github.com/example/go-seqprep/internal/server"
)

// capturingHandler captures all slog records during a test.
type capturingHandler struct {
	records []slog.Record
}

func (c *capturingHandler) Enabled(_ context.Context, _ slog.Level) bool { return true }
func (c *capturingHandler) Handle(_ context.Context, r slog.Record) error {
	c.records = append(c.records, r)
	return nil
}
func (c *capturingHandler) WithAttrs(attrs []slog.Attr) slog.Handler { return c }
func (c *capturingHandler) WithGroup(name string) slog.Handler       { return c }

func (c *capturingHandler) attrMap(idx int) map[string]any {
	m := make(map[string]any)
	c.records[idx].Attrs(func(a slog.Attr) bool {
		m[a.Key] = a.Value.Any()
		return true
	})

	return m
}

func TestEncode_LogsTokenCountAndDuration(t *testing.T) {
	capt := &capturingHandler{}
	h := server.NewHandler(newTestModel(t, false), server.WithLogger(slog.New(capt)))

	rec := doRequest(t, h, http.MethodPost, "/encode", `{"tokens":["went","A"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}

	if len(capt.records) == 0 {
		t.Fatal("want at least one log record, got none")
	}

	var found bool

	for i := range capt.records {
		attrs := capt.attrMap(i)
		if tokens, ok := attrs["tokens"]; ok {
			found = true

			if tokens != int64(2) {
				t.Errorf("want tokens=2, got %v", tokens)
			}

			if _, ok := attrs["duration_ms"]; !ok {
				t.Error("want duration_ms attribute in log record")
			}
		}
	}

	if !found {
		t.Error("no log record contained a 'tokens' attribute")
	}
}

func TestEncode_LogsUnknownItem(t *testing.T) {
	capt := &capturingHandler{}
	h := server.NewHandler(newTestModel(t, false), server.WithLogger(slog.New(capt)))

	rec := doRequest(t, h, http.MethodPost, "/encode", `{"tokens":["Alice"]}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("want 422, got %d", rec.Code)
	}

	var found bool

	for i := range capt.records {
		if attrs := capt.attrMap(i); attrs["item"] == "Alice" && attrs["axis"] == "word" {
			found = true
		}
	}

	if !found {
		t.Error("want a log record naming the unknown item")
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := []struct {
		level   string
		wantLvl slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
	}

	for _, tc := range cases {
		t.Run(tc.level, func(t *testing.T) {
			lvl, err := server.ParseLogLevel(tc.level)
			if err != nil {
				t.Fatalf("ParseLogLevel(%q) error: %v", tc.level, err)
			}

			if lvl != tc.wantLvl {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tc.level, lvl, tc.wantLvl)
			}
		})
	}
}

func TestParseLogLevel_InvalidLevelReturnsError(t *testing.T) {
	lvl, err := server.ParseLogLevel("verbose")
	if err == nil {
		t.Error("want error for unknown log level")
	}

	if lvl != slog.LevelInfo {
		t.Errorf("fallback level = %v, want info", lvl)
	}
}
