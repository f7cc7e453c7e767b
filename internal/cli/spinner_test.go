package cli

import (
	"bytes"
	"context"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// lockedBuffer lets the spinner goroutine and the test share output.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinnerDrawShowsCurrentNode(t *testing.T) {
	var out bytes.Buffer
	s := &spinner{w: &out, message: "Growing graph..."}

	s.growStep(3)("P:bob", 2, 4)
	s.draw(0)

	if got := out.String(); !strings.Contains(got, "Expanding P:bob (round 2/3, 4 nodes)") {
		t.Errorf("draw() = %q, want the expansion step", got)
	}
	if s.width == 0 {
		t.Error("draw() should record the line width")
	}

	out.Reset()
	s.clear()
	if got := out.String(); strings.TrimSpace(got) != "" || !strings.HasPrefix(got, "\r") {
		t.Errorf("clear() = %q, want a blanked line", got)
	}
	if s.width != 0 {
		t.Errorf("width = %d after clear, want 0", s.width)
	}
}

func TestSpinnerStop(t *testing.T) {
	var out lockedBuffer
	s := startSpinner(context.Background(), &out, "Fetching neighbors of P:alice...")
	time.Sleep(3 * spinnerInterval)
	s.stop()
	s.stop()

	if !strings.Contains(out.String(), "P:alice") {
		t.Errorf("output = %q, want the message drawn", out.String())
	}
	if s.interrupted() {
		t.Error("a normal stop is not an interruption")
	}
}

func TestSpinnerInterrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := startSpinner(ctx, &lockedBuffer{}, "Growing graph...")
	cancel()
	s.stop()

	if !s.interrupted() {
		t.Error("cancelling the command context should interrupt the spinner")
	}
}

func TestGrowReportsSteps(t *testing.T) {
	ws := newTestWorkspace(t, nil)

	var steps []string
	step := func(id string, round, _ int) {
		steps = append(steps, id+"@"+strconv.Itoa(round))
	}
	if err := grow(t.Context(), ws, []string{"P:alice"}, 2, step); err != nil {
		t.Fatal(err)
	}

	// Round 1 seeds P:alice; round 2 expands the two nodes it reached.
	want := "P:alice@1,O:acme@2,P:bob@2"
	if got := strings.Join(steps, ","); got != want {
		t.Errorf("steps = %s, want %s", got, want)
	}
}

func TestStatsCommandSpinnerOutput(t *testing.T) {
	ds := isolate(t)
	c := New(&bytes.Buffer{}, LogInfo)
	root := c.RootCommand()
	var stderr lockedBuffer
	root.SetErr(&stderr)
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"stats", "P:alice", "--dataset", ds, "--depth", "3"})

	if err := root.Execute(); err != nil {
		t.Fatalf("stats: %v", err)
	}
	// The spinner clears its own line; nothing it drew may remain visible.
	if got := stderr.String(); strings.TrimSpace(lastLine(got)) != "" {
		t.Errorf("spinner left %q on the terminal", lastLine(got))
	}
}

func lastLine(s string) string {
	if i := strings.LastIndex(s, "\r"); i >= 0 {
		return s[i+1:]
	}
	return s
}
