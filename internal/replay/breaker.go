package replay

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/svn2svn/svn2svn/internal/log"
)

// Breaker defers SIGINT/SIGTERM delivery across a critical section, the
// collaborator §4.7 describes: "during the critical section the handler
// defers the interrupt until after the revprop-set completes and then
// re-raises." Outside a Critical call, the process signal behavior is
// whatever the Go runtime's default is; the engine only needs the
// interrupt held off across the commit-then-propset pair.
type Breaker struct{}

// NewBreaker returns a ready-to-use Breaker.
func NewBreaker() *Breaker { return &Breaker{} }

// Critical runs fn with interrupts deferred: a signal arriving while fn
// runs is captured and re-delivered to this process immediately after fn
// returns, rather than interrupting fn partway through.
func (b *Breaker) Critical(fn func() error) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	err := fn()
	signal.Stop(sigCh)

	select {
	case s := <-sigCh:
		log.Announce(log.LevelShout, "replay: deferred interrupt (%v) across commit critical section, re-raising", s)
		if proc, perr := os.FindProcess(os.Getpid()); perr == nil {
			proc.Signal(s)
		}
	default:
	}
	return err
}
