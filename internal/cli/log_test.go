package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNewLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, LogInfo)
	logger.Info("merged", "nodes", 3)

	out := buf.String()
	if !strings.Contains(out, "merged") || !strings.Contains(out, "nodes=3") {
		t.Errorf("log line = %q, want message and key/value", out)
	}
}

func TestSetLogLevel(t *testing.T) {
	tests := []struct {
		name    string
		level   log.Level
		wantLog bool
	}{
		{"info hides debug", LogInfo, false},
		{"verbose shows debug", LogDebug, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			c := New(&buf, LogInfo)
			c.SetLogLevel(tt.level)
			c.Logger.Debug("using dataset", "path", "relations.jsonl")
			if got := buf.Len() > 0; got != tt.wantLog {
				t.Errorf("debug output = %v, want %v", got, tt.wantLog)
			}
		})
	}
}

func TestProgressDone(t *testing.T) {
	var buf bytes.Buffer
	prog := newProgress(newLogger(&buf, LogInfo))
	prog.done("Expanded P:alice")

	out := buf.String()
	if !strings.Contains(out, "Expanded P:alice (") || !strings.Contains(out, "s)") {
		t.Errorf("progress output = %q, want message with elapsed time", out)
	}
}

func TestLoggerFromContext(t *testing.T) {
	if loggerFromContext(context.Background()) != log.Default() {
		t.Error("loggerFromContext without a logger should fall back to log.Default()")
	}
	l := newLogger(&bytes.Buffer{}, LogInfo)
	if loggerFromContext(withLogger(context.Background(), l)) != l {
		t.Error("loggerFromContext should return the attached logger")
	}
}

func TestExpandLogsThroughCommandContext(t *testing.T) {
	ds := isolate(t)
	var logs bytes.Buffer
	root := New(&logs, LogDebug).RootCommand()
	root.SetArgs([]string{"expand", "P:alice", "--dataset", ds})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	if err := root.Execute(); err != nil {
		t.Fatalf("expand: %v", err)
	}

	out := logs.String()
	for _, want := range []string{"using dataset", "Expanded P:alice"} {
		if !strings.Contains(out, want) {
			t.Errorf("logs missing %q:\n%s", want, out)
		}
	}
}
