package logger

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/yuya-takeyama/s3-bulk-upload/pkg/discovery"
	"github.com/yuya-takeyama/s3-bulk-upload/pkg/transfer"
)

func batchEvents() []transfer.Event {
	ok := transfer.Outcome{
		Item:     discovery.Item{LocalPath: "/in/a.mp4", RelPath: "a.mp4", Size: 2048},
		Key:      "raw/a.mp4",
		Status:   transfer.StatusSucceeded,
		Progress: transfer.Progress{TotalBytes: 2048, BytesCompleted: 2048},
		Duration: 1500 * time.Millisecond,
	}
	bad := transfer.Outcome{
		Item:   discovery.Item{LocalPath: "/in/b.mov", RelPath: "b.mov", Size: 10},
		Key:    "raw/b.mov",
		Status: transfer.StatusFailed,
		Error:  "upload raw/b.mov: connection reset",
	}
	skipped := transfer.Outcome{
		Item:    discovery.Item{LocalPath: "/in/c.mkv", RelPath: "c.mkv", Size: 5},
		Key:     "raw/c.mkv",
		Status:  transfer.StatusSucceeded,
		Skipped: true,
	}
	summary := transfer.Summarize([]transfer.Outcome{ok, bad, skipped})
	summary.Duration = 2 * time.Second

	var events []transfer.Event
	events = append(events, transfer.Event{Kind: transfer.EventBatchStarted, Count: 3})
	for i, o := range []transfer.Outcome{ok, bad, skipped} {
		o := o
		events = append(events,
			transfer.Event{Kind: transfer.EventItemStarted, Index: i, Count: 3, Item: o.Item, Key: o.Key},
			transfer.Event{Kind: transfer.EventItemFinished, Index: i, Count: 3, Item: o.Item, Key: o.Key, Outcome: &o},
		)
	}
	events = append(events, transfer.Event{Kind: transfer.EventBatchFinished, Count: 3, Summary: &summary})
	return events
}

func TestConsole(t *testing.T) {
	var out, errOut bytes.Buffer
	l := &Console{Out: &out, ErrOut: &errOut, Bucket: "videos"}

	for _, event := range batchEvents() {
		l.Handle(event)
	}

	wantOut := []string{
		"Uploading 3 files to s3://videos",
		"[1/3] upload: /in/a.mp4 (2.0 KB) to s3://videos/raw/a.mp4",
		"[1/3] done: a.mp4 (2.0 KB in 1.5s)",
		"[2/3] upload: /in/b.mov (10 B) to s3://videos/raw/b.mov",
		"[3/3] skip: c.mkv (already exists)",
		"=== Summary ===",
		"Total: 3 files",
		"Succeeded: 2 files (2.0 KB uploaded)",
		"Skipped: 1 files (already present)",
		"Failed: 1 files",
		"  - b.mov: upload raw/b.mov: connection reset",
		"Duration: 2s",
	}
	for _, want := range wantOut {
		if !strings.Contains(out.String(), want) {
			t.Errorf("stdout missing %q\n%s", want, out.String())
		}
	}

	if got, want := errOut.String(), "[2/3] failed: b.mov: upload raw/b.mov: connection reset\n"; got != want {
		t.Errorf("stderr = %q, want %q", got, want)
	}
}

func TestConsoleDryRun(t *testing.T) {
	var out bytes.Buffer
	l := &Console{Out: &out, ErrOut: &out, Bucket: "videos", DryRun: true}

	item := discovery.Item{LocalPath: "/in/a.mp4", RelPath: "a.mp4", Size: 1}
	outcome := transfer.Outcome{Item: item, Key: "a.mp4", Status: transfer.StatusSucceeded}
	l.Handle(transfer.Event{Kind: transfer.EventItemStarted, Count: 1, Item: item, Key: "a.mp4"})
	l.Handle(transfer.Event{Kind: transfer.EventItemFinished, Count: 1, Item: item, Key: "a.mp4", Outcome: &outcome})

	if got, want := out.String(), "[1/1] (dryrun) upload: /in/a.mp4 (1 B) to s3://videos/a.mp4\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestConsoleEmptyBatch(t *testing.T) {
	var out bytes.Buffer
	l := &Console{Out: &out, ErrOut: &out, Bucket: "videos"}
	l.Handle(transfer.Event{Kind: transfer.EventBatchStarted})

	if got := out.String(); got != "No files to upload\n" {
		t.Errorf("output = %q", got)
	}
}

func TestQuiet(t *testing.T) {
	t.Run("with failures", func(t *testing.T) {
		var errOut bytes.Buffer
		l := &Quiet{ErrOut: &errOut}
		for _, event := range batchEvents() {
			l.Handle(event)
		}

		got := errOut.String()
		if !strings.HasPrefix(got, "failed: b.mov: upload raw/b.mov: connection reset\n") {
			t.Errorf("output should start with the failure line, got %q", got)
		}
		if !strings.Contains(got, "Failed: 1 files") {
			t.Errorf("output missing summary: %q", got)
		}
		if strings.Contains(got, "a.mp4") {
			t.Errorf("output mentions a succeeded item: %q", got)
		}
	})

	t.Run("all succeeded", func(t *testing.T) {
		var errOut bytes.Buffer
		l := &Quiet{ErrOut: &errOut}
		summary := transfer.Summarize(nil)
		l.Handle(transfer.Event{Kind: transfer.EventBatchStarted})
		l.Handle(transfer.Event{Kind: transfer.EventBatchFinished, Summary: &summary})

		if errOut.Len() != 0 {
			t.Errorf("output = %q, want nothing", errOut.String())
		}
	})
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	if _, ok := New(true, false, "b", &buf, &buf).(*Quiet); !ok {
		t.Error("New(quiet) did not return *Quiet")
	}
	if _, ok := New(false, true, "b", &buf, &buf).(*Console); !ok {
		t.Error("New(!quiet) did not return *Console")
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
	}

	for _, tt := range tests {
		if got := FormatBytes(tt.bytes); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}
