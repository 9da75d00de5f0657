package collector

import (
	"github.com/aluiziolira/go-collect-feeds/models"
)

// fetchPhase is the state of one source's fetch within a run.
type fetchPhase string

const (
	phasePending    fetchPhase = "pending"
	phaseAttempting fetchPhase = "attempting"
	phaseRetrying   fetchPhase = "retrying"
	phaseSucceeded  fetchPhase = "succeeded"
	phaseFailed     fetchPhase = "failed"
)

// sourceState drives one source through
// pending -> attempting -> {succeeded, retrying, failed}, carrying the
// attempt counter and last error. The loop in Collector.Run only asks it
// whether to try again; transition rules live here so retry behavior is
// testable without a network.
type sourceState struct {
	source      models.Source
	phase       fetchPhase
	maxAttempts int
	attempts    int
	lastErr     error
	bytes       int64
}

func newSourceState(source models.Source, maxAttempts int) *sourceState {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &sourceState{
		source:      source,
		phase:       phasePending,
		maxAttempts: maxAttempts,
	}
}

// begin transitions into attempting and counts the attempt. It reports false
// once the state is terminal.
func (s *sourceState) begin() bool {
	switch s.phase {
	case phasePending, phaseRetrying:
		s.phase = phaseAttempting
		s.attempts++
		return true
	default:
		return false
	}
}

// succeed records a successful attempt and the stored snapshot size.
func (s *sourceState) succeed(bytes int64) {
	if s.phase != phaseAttempting {
		return
	}
	s.phase = phaseSucceeded
	s.bytes = bytes
}

// fail records a failed attempt; the state moves to retrying until attempts
// are exhausted, then to failed.
func (s *sourceState) fail(err error) {
	if s.phase != phaseAttempting {
		return
	}
	s.lastErr = err
	if s.attempts >= s.maxAttempts {
		s.phase = phaseFailed
		return
	}
	s.phase = phaseRetrying
}

// abort forces a terminal failed state, e.g. on context cancellation.
func (s *sourceState) abort(err error) {
	if s.done() {
		return
	}
	if err != nil {
		s.lastErr = err
	}
	s.phase = phaseFailed
}

func (s *sourceState) done() bool {
	return s.phase == phaseSucceeded || s.phase == phaseFailed
}

func (s *sourceState) willRetry() bool {
	return s.phase == phaseRetrying
}

// result renders the terminal state as a manifest record.
func (s *sourceState) result(elapsedSeconds float64) models.FetchResult {
	r := models.FetchResult{
		Name:           s.source.Name,
		URL:            s.source.URL,
		Attempts:       s.attempts,
		ElapsedSeconds: elapsedSeconds,
	}
	if s.phase == phaseSucceeded {
		r.Status = models.FetchSuccess
		r.Bytes = s.bytes
	} else {
		r.Status = models.FetchFailed
		if s.lastErr != nil {
			r.LastError = s.lastErr.Error()
		}
	}
	return r
}
