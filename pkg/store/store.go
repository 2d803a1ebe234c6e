// Package store records the history of solve and verify runs.
//
// Every run handled by the pipeline produces a [Run] describing what was
// solved or checked and how it went. Backends:
//   - [FileStore]: one JSON file per run, for the command line
//   - [MongoStore]: a MongoDB collection, for the HTTP server
//   - [NullStore]: discards everything
//
// # Usage
//
//	st, err := store.NewFileStore("")  // Uses ~/.config/siteplan/runs/
//	run := store.NewRun(store.KindSolve, "Instance_1")
//	run.Objective = 118.24
//	err = st.Record(ctx, run)
//
//	recent, err := st.List(ctx, store.Filter{Limit: 20})
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Get when no run has the requested ID.
var ErrNotFound = errors.New("run not found")

// Kind is the type of a recorded run.
type Kind string

const (
	KindSolve  Kind = "solve"
	KindVerify Kind = "verify"
)

// DefaultListLimit caps List when Filter.Limit is zero.
const DefaultListLimit = 50

// Run is one recorded solve or verify.
type Run struct {
	ID           string    `json:"id" bson:"_id"`
	Kind         Kind      `json:"kind" bson:"kind"`
	Instance     string    `json:"instance" bson:"instance"`
	InstanceHash string    `json:"instance_hash,omitempty" bson:"instance_hash,omitempty"`
	Strategy     string    `json:"strategy,omitempty" bson:"strategy,omitempty"`
	Centers      []int     `json:"centers,omitempty" bson:"centers,omitempty"`
	Objective    float64   `json:"objective" bson:"objective"`
	WorkloadGap  int       `json:"workload_gap" bson:"workload_gap"`
	DistanceGap  float64   `json:"distance_gap" bson:"distance_gap"`
	Nodes        int       `json:"nodes,omitempty" bson:"nodes,omitempty"`
	Backtracks   int       `json:"backtracks,omitempty" bson:"backtracks,omitempty"`
	CacheHit     bool      `json:"cache_hit,omitempty" bson:"cache_hit,omitempty"`
	Verdict      string    `json:"verdict" bson:"verdict"`
	Error        string    `json:"error,omitempty" bson:"error,omitempty"`
	Duration     Duration  `json:"duration" bson:"duration"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
}

// NewRun creates a run with a fresh ID and the current time.
func NewRun(kind Kind, instance string) *Run {
	return &Run{
		ID:        uuid.NewString(),
		Kind:      kind,
		Instance:  instance,
		CreatedAt: time.Now().UTC(),
	}
}

// OK reports whether the run ended without an error or failed check.
func (r *Run) OK() bool {
	return r.Error == "" && (r.Verdict == "" || r.Verdict == VerdictOK)
}

// VerdictOK is the verdict of a successful run.
const VerdictOK = "OK"

// Duration is a time.Duration stored as integer milliseconds.
type Duration int64

// NewDuration converts d, truncating to milliseconds.
func NewDuration(d time.Duration) Duration { return Duration(d.Milliseconds()) }

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) * time.Millisecond }

// Filter narrows List results.
type Filter struct {
	Instance string // exact instance name, empty for all
	Kind     Kind   // empty for all kinds
	Limit    int    // 0 means DefaultListLimit
}

func (f Filter) limit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}

func (f Filter) match(r *Run) bool {
	return (f.Instance == "" || r.Instance == f.Instance) && (f.Kind == "" || r.Kind == f.Kind)
}

// Store is the interface for run history backends.
type Store interface {
	// Record stores a run.
	Record(ctx context.Context, run *Run) error

	// Get returns the run with the given ID or ErrNotFound.
	Get(ctx context.Context, id string) (*Run, error)

	// List returns matching runs, newest first.
	List(ctx context.Context, f Filter) ([]*Run, error)

	// Close releases the backend.
	Close() error
}
