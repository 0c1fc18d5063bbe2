package log

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh/terminal"
)

// Baton reports indefinite or counted progress on an interactive terminal,
// the way surgeon/baton.go does for reposurgeon's stream operations. When
// stdout is not a terminal it draws nothing, and End writes one summary
// line through Announce instead, matching the teacher's progressEnabled gate.
type Baton struct {
	mu          sync.Mutex
	interactive bool
	stream      *os.File
	start       time.Time
	lastRender  time.Time
	prompt      string
	count       uint64
	expected    uint64 // 0 means indefinite (twirly), >0 means percent-complete
	spin        int
}

const renderInterval = 200 * time.Millisecond

// NewBaton starts a progress meter for one long-running operation
// (e.g. "fetching log chunk", "replaying revisions"). expected == 0 means
// indefinite progress (a twirling spinner); expected > 0 switches to a
// percent-of-expected counter.
func NewBaton(prompt string, expected uint64) *Baton {
	b := &Baton{
		stream:      os.Stdout,
		start:       time.Now(),
		prompt:      prompt,
		expected:    expected,
		interactive: isTerminal(os.Stdout),
	}
	if b.interactive {
		fmt.Fprintf(b.stream, "%s...", prompt)
	}
	return b
}

func isTerminal(f *os.File) bool {
	return terminal.IsTerminal(int(f.Fd()))
}

// Bump advances the counter by one step and repaints if enough time has
// passed since the last repaint (rate-limited the same way
// surgeon/baton.go's Twirly/Progress types are).
func (b *Baton) Bump() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.count++
	if !b.interactive || time.Since(b.lastRender) < renderInterval {
		return
	}
	b.lastRender = time.Now()
	b.render()
}

func (b *Baton) render() {
	if b.expected > 0 {
		pct := 100 * float64(b.count) / float64(b.expected)
		fmt.Fprintf(b.stream, "\r%s... %d/%d (%.1f%%)", b.prompt, b.count, b.expected, pct)
		return
	}
	b.spin = (b.spin + 1) % 4
	fmt.Fprintf(b.stream, "\r%s... %c", b.prompt, "-\\|/"[b.spin])
}

// End finishes the progress line with a final message and the elapsed
// wall-clock time, mirroring Baton.exit in the teacher.
func (b *Baton) End(finalMsg string) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	elapsed := time.Since(b.start).Round(10 * time.Millisecond)
	if b.interactive {
		fmt.Fprintf(b.stream, "\r%s\n", strings.Repeat(" ", len(b.prompt)+40))
		fmt.Fprintf(b.stream, "%s...(%s) %s.\n", b.prompt, elapsed, finalMsg)
	} else {
		Announce(LevelInfo, "%s: %s (%s)", b.prompt, finalMsg, elapsed)
	}
}
