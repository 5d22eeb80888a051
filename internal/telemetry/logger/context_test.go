package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestRunID(t *testing.T) {
	ctx := context.Background()
	if got := RunIDFromContext(ctx); got != "" {
		t.Errorf("RunIDFromContext() on empty context = %q, want empty", got)
	}

	ctx = WithRunID(ctx, "01JBXW6V0QZ7N8K1R3T5Y9A2CD")
	if got := RunIDFromContext(ctx); got != "01JBXW6V0QZ7N8K1R3T5Y9A2CD" {
		t.Errorf("RunIDFromContext() = %q", got)
	}
}

func TestSource(t *testing.T) {
	ctx := context.Background()
	if got := SourceFromContext(ctx); got != "" {
		t.Errorf("SourceFromContext() on empty context = %q, want empty", got)
	}

	ctx = WithSource(ctx, "live")
	if got := SourceFromContext(ctx); got != "live" {
		t.Errorf("SourceFromContext() = %q, want live", got)
	}
}

func TestWithContext(t *testing.T) {
	tests := []struct {
		name       string
		runID      string
		source     string
		wantFields map[string]string
		absent     []string
	}{
		{
			name:       "both",
			runID:      "run-1",
			source:     "replay",
			wantFields: map[string]string{"run_id": "run-1", "source": "replay"},
		},
		{
			name:       "run only",
			runID:      "run-2",
			wantFields: map[string]string{"run_id": "run-2"},
			absent:     []string{"source"},
		},
		{
			name:   "none",
			absent: []string{"run_id", "source"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l, err := New(Config{Level: "info", Format: "json", Output: &buf})
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}

			ctx := context.Background()
			if tt.runID != "" {
				ctx = WithRunID(ctx, tt.runID)
			}
			if tt.source != "" {
				ctx = WithSource(ctx, tt.source)
			}
			l.WithContext(ctx).With("component", "test").Info("test message")

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("Failed to parse JSON log: %v", err)
			}
			for k, want := range tt.wantFields {
				if got, _ := entry[k].(string); got != want {
					t.Errorf("%s = %q, want %q", k, got, want)
				}
			}
			for _, k := range tt.absent {
				if _, ok := entry[k]; ok {
					t.Errorf("%s should be absent", k)
				}
			}
		})
	}
}

func TestContextKeyCollision(t *testing.T) {
	ctx := context.WithValue(context.Background(), "snakeview.run_id", "wrong")
	if got := RunIDFromContext(ctx); got != "" {
		t.Errorf("plain string key should not collide, got %q", got)
	}
}
