// Package transfer uploads discovered items one at a time and records one
// outcome per item, whatever happens to the others.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yuya-takeyama/s3-bulk-upload/pkg/discovery"
)

const canceledBeforeStart = "canceled before start"

type Orchestrator struct {
	writer    Writer
	sink      EventSink
	policy    Policy
	keyPrefix string
	dryRun    bool
}

type Option func(*Orchestrator)

func WithPolicy(policy Policy) Option {
	return func(o *Orchestrator) {
		o.policy = policy
	}
}

// WithKeyPrefix puts every key under prefix
func WithKeyPrefix(prefix string) Option {
	return func(o *Orchestrator) {
		o.keyPrefix = prefix
	}
}

func WithEventSink(sink EventSink) Option {
	return func(o *Orchestrator) {
		o.sink = sink
	}
}

// WithDryRun reports every item as succeeded without touching the writer
func WithDryRun(dryRun bool) Option {
	return func(o *Orchestrator) {
		o.dryRun = dryRun
	}
}

func New(writer Writer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		writer: writer,
		policy: OverwriteIfExists,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run transfers items in order and returns the folded result log.
// It never stops early: once ctx is done the remaining items are recorded
// as failed without calling the writer.
func (o *Orchestrator) Run(ctx context.Context, items []discovery.Item) Summary {
	start := time.Now()
	count := len(items)
	outcomes := make([]Outcome, 0, count)

	o.emit(Event{Kind: EventBatchStarted, Count: count})

	for i, item := range items {
		key := RemoteKey(o.keyPrefix, item.RelPath)

		if ctx.Err() != nil {
			outcome := Outcome{
				Item:     item,
				Key:      key,
				Status:   StatusFailed,
				Error:    canceledBeforeStart,
				Progress: Progress{TotalBytes: item.Size},
			}
			outcomes = append(outcomes, outcome)
			o.emit(Event{Kind: EventItemFinished, Index: i, Count: count, Item: item, Key: key, Progress: outcome.Progress, Outcome: &outcome})
			continue
		}

		outcomes = append(outcomes, o.transferItem(ctx, i, count, item, key))
	}

	summary := Summarize(outcomes)
	summary.Duration = time.Since(start)
	o.emit(Event{Kind: EventBatchFinished, Count: count, Summary: &summary})

	return summary
}

func (o *Orchestrator) transferItem(ctx context.Context, index, count int, item discovery.Item, key string) Outcome {
	start := time.Now()
	state := newProgressState(item.Size)

	o.emit(Event{Kind: EventItemStarted, Index: index, Count: count, Item: item, Key: key, Progress: state.snapshot()})

	outcome := Outcome{Item: item, Key: key, Status: StatusSucceeded}
	if err := o.attempt(ctx, item, key, state, &outcome); err != nil {
		outcome.Status = StatusFailed
		outcome.Error = describeError(err)
	}
	outcome.Progress = state.snapshot()
	outcome.Duration = time.Since(start)

	o.emit(Event{Kind: EventItemFinished, Index: index, Count: count, Item: item, Key: key, Progress: outcome.Progress, Outcome: &outcome})
	return outcome
}

// attempt runs the writer calls for one item; a panicking writer fails only that item.
func (o *Orchestrator) attempt(ctx context.Context, item discovery.Item, key string, state *progressState, outcome *Outcome) (err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome.Skipped = false
			err = fmt.Errorf("writer panic: %v", r)
		}
	}()

	if o.dryRun {
		return nil
	}

	if o.policy == SkipIfExists {
		exists, err := o.writer.Exists(ctx, key)
		if err != nil {
			return fmt.Errorf("check existing object: %w", err)
		}
		if exists {
			outcome.Skipped = true
			return nil
		}
	}

	return o.writer.Upload(ctx, item.LocalPath, key, state)
}

func (o *Orchestrator) emit(event Event) {
	if o.sink != nil {
		o.sink.Handle(event)
	}
}

// RemoteKey turns a relative path into an object key under prefix.
// Backslashes are treated as separators so keys match on every platform.
func RemoteKey(prefix, relPath string) string {
	key := strings.ReplaceAll(relPath, "\\", "/")
	key = strings.TrimLeft(key, "/")

	if prefix == "" {
		return key
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix + key
}

func describeError(err error) string {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled: " + err.Error()
	}
	return err.Error()
}
