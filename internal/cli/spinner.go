package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

const spinnerInterval = 80 * time.Millisecond

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// spinner draws a one-line activity indicator on w while a graph is being
// fetched or laid out. The message can change while it runs, so long
// expansions report which node they are on.
type spinner struct {
	w      io.Writer
	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	message string
	width   int // widest line drawn so far

	stopOnce sync.Once
	stopped  chan struct{}
}

// startSpinner draws on w until stop is called or ctx is done.
func startSpinner(ctx context.Context, w io.Writer, message string) *spinner {
	sctx, cancel := context.WithCancel(ctx)
	s := &spinner{
		w:       w,
		parent:  ctx,
		ctx:     sctx,
		cancel:  cancel,
		message: message,
		stopped: make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *spinner) run() {
	defer close(s.stopped)
	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()

	for i := 0; ; i++ {
		select {
		case <-s.ctx.Done():
			s.clear()
			return
		case <-ticker.C:
			s.draw(i)
		}
	}
}

// update replaces the message shown next to the spinner.
func (s *spinner) update(format string, args ...any) {
	s.mu.Lock()
	s.message = fmt.Sprintf(format, args...)
	s.mu.Unlock()
}

// growStep returns a grow callback that reports the node being expanded.
func (s *spinner) growStep(depth int) growStep {
	return func(id string, round, nodes int) {
		s.update("Expanding %s (round %d/%d, %d nodes)", id, round, depth, nodes)
	}
}

func (s *spinner) draw(frame int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := spinnerFrames[frame%len(spinnerFrames)]
	if n := len([]rune(f + " " + s.message)); n > s.width {
		s.width = n
	}
	fmt.Fprintf(s.w, "\r%s %s", styleIconSpinner.Render(f), StyleDim.Render(s.message))
}

func (s *spinner) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.width == 0 {
		return
	}
	fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", s.width))
	s.width = 0
}

// stop halts the animation and clears the line. It is safe to call more
// than once.
func (s *spinner) stop() {
	s.stopOnce.Do(s.cancel)
	<-s.stopped
}

// interrupted reports whether the command's context ended while the
// spinner was running, as opposed to a normal stop.
func (s *spinner) interrupted() bool {
	return s.parent.Err() != nil
}
