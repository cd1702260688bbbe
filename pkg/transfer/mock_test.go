package transfer

import (
	"context"
	"fmt"
)

// mockWriter is a mock implementation of Writer for testing
type mockWriter struct {
	uploadFunc func(ctx context.Context, localPath, key string, sink ProgressSink) error
	existsFunc func(ctx context.Context, key string) (bool, error)

	uploadCalls []string
	existsCalls []string
}

func (m *mockWriter) Upload(ctx context.Context, localPath, key string, sink ProgressSink) error {
	m.uploadCalls = append(m.uploadCalls, key)
	if m.uploadFunc != nil {
		return m.uploadFunc(ctx, localPath, key, sink)
	}
	return nil
}

func (m *mockWriter) Exists(ctx context.Context, key string) (bool, error) {
	m.existsCalls = append(m.existsCalls, key)
	if m.existsFunc != nil {
		return m.existsFunc(ctx, key)
	}
	return false, fmt.Errorf("Exists not implemented")
}

// memoryBucket records uploads so re-runs can see them
type memoryBucket struct {
	objects map[string]int64
	fail    map[string]error
	uploads int
}

func newMemoryBucket() *memoryBucket {
	return &memoryBucket{objects: map[string]int64{}, fail: map[string]error{}}
}

func (b *memoryBucket) Upload(ctx context.Context, localPath, key string, sink ProgressSink) error {
	b.uploads++
	if err, ok := b.fail[key]; ok {
		return err
	}
	b.objects[key] = 1
	return nil
}

func (b *memoryBucket) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := b.objects[key]
	return ok, nil
}

// recordingSink keeps every event it receives
type recordingSink struct {
	events []Event
}

func (r *recordingSink) Handle(event Event) {
	r.events = append(r.events, event)
}

func (r *recordingSink) kinds() []EventKind {
	kinds := []EventKind{}
	for _, e := range r.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}
