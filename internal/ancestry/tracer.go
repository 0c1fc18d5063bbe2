package ancestry

// Tracer binds a LogClient so callers that only ever trace against one
// repository root (the planner, the orchestrator) don't have to thread it
// through every call.
type Tracer struct {
	Client LogClient
}

// NewTracer returns a Tracer backed by client.
func NewTracer(client LogClient) *Tracer {
	return &Tracer{Client: client}
}

// FindAncestors delegates to the package-level FindAncestors function.
func (t *Tracer) FindAncestors(reposRoot, startPath string, startRev int, stopBase string) ([]Step, error) {
	return FindAncestors(t.Client, reposRoot, startPath, startRev, stopBase)
}
