package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/yuya-takeyama/s3-bulk-upload/pkg/discovery"
)

// Writer is the remote side of a transfer
type Writer interface {
	Upload(ctx context.Context, localPath, key string, sink ProgressSink) error
	Exists(ctx context.Context, key string) (bool, error)
}

// ProgressSink receives progress callbacks from a Writer during one upload.
// SetTotal is honoured once; Advance reports newly completed bytes.
type ProgressSink interface {
	SetTotal(totalBytes int64)
	Advance(n int64)
}

// Policy decides what happens when the remote object already exists
type Policy string

const (
	OverwriteIfExists Policy = "overwrite"
	SkipIfExists      Policy = "skip"
)

// ParsePolicy parses the command line form of a Policy
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case OverwriteIfExists, SkipIfExists:
		return Policy(s), nil
	case "":
		return OverwriteIfExists, nil
	default:
		return "", fmt.Errorf("unknown overwrite policy %q (want %q or %q)", s, OverwriteIfExists, SkipIfExists)
	}
}

type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Progress is the byte progress of a single item
type Progress struct {
	TotalBytes     int64
	BytesCompleted int64
}

// Outcome is the terminal record of one item's transfer attempt
type Outcome struct {
	Item     discovery.Item
	Key      string
	Status   Status
	Skipped  bool   // already present remotely, nothing was written
	Error    string // set iff Status is StatusFailed
	Progress Progress
	Duration time.Duration
}

// Failure names a failed item and its cause
type Failure struct {
	RelPath string
	Error   string
}

// Summary aggregates the outcomes of a batch
type Summary struct {
	Total         int
	Succeeded     int
	Failed        int
	Skipped       int // subset of Succeeded
	BytesUploaded int64
	FailedItems   []Failure
	Outcomes      []Outcome
	Duration      time.Duration
}

// OK reports whether every item succeeded
func (s Summary) OK() bool {
	return s.Failed == 0
}

// Summarize folds a result log into a Summary
func Summarize(outcomes []Outcome) Summary {
	summary := Summary{
		Total:       len(outcomes),
		FailedItems: []Failure{},
		Outcomes:    outcomes,
	}
	for _, outcome := range outcomes {
		switch outcome.Status {
		case StatusSucceeded:
			summary.Succeeded++
			if outcome.Skipped {
				summary.Skipped++
			} else {
				summary.BytesUploaded += outcome.Progress.BytesCompleted
			}
		case StatusFailed:
			summary.Failed++
			summary.FailedItems = append(summary.FailedItems, Failure{
				RelPath: outcome.Item.RelPath,
				Error:   outcome.Error,
			})
		}
	}
	return summary
}

type EventKind string

const (
	EventBatchStarted  EventKind = "batch_started"
	EventItemStarted   EventKind = "item_started"
	EventItemFinished  EventKind = "item_finished"
	EventBatchFinished EventKind = "batch_finished"
)

// Event is one entry of the ordered stream a batch emits.
// Index is zero-based; Count is the batch size.
type Event struct {
	Kind     EventKind
	Index    int
	Count    int
	Item     discovery.Item
	Key      string
	Progress Progress
	Outcome  *Outcome
	Summary  *Summary
}

// EventSink renders or records events
type EventSink interface {
	Handle(event Event)
}

// EventSinkFunc adapts a function to EventSink
type EventSinkFunc func(event Event)

func (f EventSinkFunc) Handle(event Event) {
	f(event)
}
