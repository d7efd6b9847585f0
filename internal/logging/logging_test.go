package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_Formats(t *testing.T) {
	tests := []struct {
		format Format
		want   []string
	}{
		{FormatText, []string{"msg=submitted", "workflow=wb-1"}},
		{FormatJSON, []string{`"msg":"submitted"`, `"workflow":"wb-1"`}},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			var buf bytes.Buffer
			New(&buf, slog.LevelInfo, tt.format).Info("submitted", "workflow", "wb-1")
			for _, w := range tt.want {
				if !strings.Contains(buf.String(), w) {
					t.Errorf("output %q missing %q", buf.String(), w)
				}
			}
		})
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelWarn, FormatText)

	logger.Info("workflow status")
	logger.Warn("status fetch failed, retrying")

	out := buf.String()
	if strings.Contains(out, "workflow status") {
		t.Errorf("info record written at warn level: %s", out)
	}
	if !strings.Contains(out, "status fetch failed") {
		t.Errorf("warn record missing: %s", out)
	}
}

func TestFromSettings(t *testing.T) {
	var buf bytes.Buffer
	logger, err := FromSettings(&buf, "DEBUG", "JSON")
	if err != nil {
		t.Fatalf("FromSettings: %v", err)
	}
	logger.Debug("poll", "url", "/api/v1/workflows/ns/wb-1")
	if !strings.Contains(buf.String(), `"level":"DEBUG"`) {
		t.Errorf("expected debug json record, got %s", buf.String())
	}

	if _, err := FromSettings(&buf, "verbose", "text"); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := FromSettings(&buf, "info", "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	child := Component(New(&buf, slog.LevelDebug, FormatText), "execution")

	child.Debug("poll", "workflow", "wb-1")

	out := buf.String()
	if !strings.Contains(out, "component=execution") || !strings.Contains(out, "workflow=wb-1") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestComponent_NilLogger(t *testing.T) {
	logger := Component(nil, "argo")
	if logger == nil {
		t.Fatal("Component(nil) returned nil")
	}
	logger.Info("dropped")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{" error ", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatText, "Text": FormatText, "json": FormatJSON} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseFormat("logfmt"); err == nil {
		t.Error("expected error for logfmt")
	}
}
