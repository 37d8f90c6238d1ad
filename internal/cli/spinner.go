package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

// spinnerFrames are cycled while a long operation (mirror probing, the
// compile loop) is in flight.
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// spinner animates a single status line on stderr so command output on
// stdout stays clean. It stops on its own when the context is
// cancelled.
type spinner struct {
	message string
	cancel  context.CancelFunc
	done    chan struct{}
}

// startSpinner begins animating immediately. Callers must end it with
// stop, success, or fail.
func startSpinner(ctx context.Context, message string) *spinner {
	ctx, cancel := context.WithCancel(ctx)
	s := &spinner{message: message, cancel: cancel, done: make(chan struct{})}
	go s.run(ctx)
	return s
}

func (s *spinner) run(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()

	for frame := 0; ; frame++ {
		select {
		case <-ctx.Done():
			// Blank the status line before handing stderr back
			fmt.Fprintf(os.Stderr, "\r%s\r", strings.Repeat(" ", len(s.message)+4))
			return
		case <-ticker.C:
			glyph := spinnerFrames[frame%len(spinnerFrames)]
			fmt.Fprintf(os.Stderr, "\r%s %s", styleIconSpinner.Render(glyph), StyleDim.Render(s.message))
		}
	}
}

// stop ends the animation and waits for the line to be cleared.
func (s *spinner) stop() {
	s.cancel()
	<-s.done
}

// success stops the spinner and prints a success line in its place.
func (s *spinner) success(format string, args ...any) {
	s.stop()
	printSuccess(format, args...)
}

// fail stops the spinner and prints an error line in its place.
func (s *spinner) fail(format string, args ...any) {
	s.stop()
	printError(format, args...)
}
