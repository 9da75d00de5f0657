package storage

import (
	"fmt"
	"time"
)

// runIDLayout renders second resolution so successive runs never collide and
// lexicographic order matches chronological order.
const runIDLayout = "20060102-150405"

// RunID identifies one collector run. It names the run directory and is the
// timestamp recorded in the manifest; both components derive age from it the
// same way, so there is no format or timezone skew between them.
type RunID struct {
	t time.Time
}

// NewRunID builds a RunID from a start time, truncated to whole seconds in UTC.
func NewRunID(t time.Time) RunID {
	return RunID{t: t.UTC().Truncate(time.Second)}
}

// ParseRunID parses a run directory name back into a RunID.
func ParseRunID(name string) (RunID, error) {
	t, err := time.Parse(runIDLayout, name)
	if err != nil {
		return RunID{}, fmt.Errorf("parse run id %q: %w", name, err)
	}
	return RunID{t: t.UTC()}, nil
}

// String renders the directory name form, e.g. "20260830-143015".
func (id RunID) String() string {
	return id.t.Format(runIDLayout)
}

// Time returns the run start time in UTC.
func (id RunID) Time() time.Time {
	return id.t
}

// Before reports whether id started before other.
func (id RunID) Before(other RunID) bool {
	return id.t.Before(other.t)
}
