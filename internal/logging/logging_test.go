package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewHandler(t *testing.T) {
	tests := []struct {
		level   string
		format  string
		wantErr bool
	}{
		{"info", "text", false},
		{"DEBUG", "json", false},
		{"warn", "", false},
		{"loud", "text", true},
		{"info", "xml", true},
	}

	for _, tt := range tests {
		_, err := NewHandler(tt.level, tt.format, &bytes.Buffer{})
		if (err != nil) != tt.wantErr {
			t.Errorf("NewHandler(%q, %q) error = %v, wantErr %v", tt.level, tt.format, err, tt.wantErr)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	handler, err := NewHandler("warn", "text", &buf)
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(handler)

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestConversationField(t *testing.T) {
	var buf bytes.Buffer
	handler, err := NewHandler("info", "json", &buf)
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(handler).With("run", 1)

	ctx := WithConversation(context.Background(), "alice")
	logger.InfoContext(ctx, "Saved transcript")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("invalid JSON %q: %v", buf.String(), err)
	}
	if record["conversation"] != "alice" {
		t.Errorf("conversation = %v", record["conversation"])
	}
	if record["msg"] != "Saved transcript" {
		t.Errorf("msg = %v", record["msg"])
	}

	buf.Reset()
	logger.Info("no context")
	if strings.Contains(buf.String(), "conversation") {
		t.Errorf("unexpected conversation field: %q", buf.String())
	}
}
