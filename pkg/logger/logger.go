package logger

import (
	"fmt"
	"io"
	"time"

	"github.com/yuya-takeyama/s3-bulk-upload/pkg/transfer"
)

// Console renders every event of a batch, one line per item start and outcome
type Console struct {
	Out    io.Writer
	ErrOut io.Writer
	Bucket string
	DryRun bool
}

func (l *Console) Handle(event transfer.Event) {
	switch event.Kind {
	case transfer.EventBatchStarted:
		if event.Count == 0 {
			fmt.Fprintln(l.Out, "No files to upload")
			return
		}
		fmt.Fprintf(l.Out, "Uploading %d files to s3://%s\n", event.Count, l.Bucket)
	case transfer.EventItemStarted:
		fmt.Fprintf(l.Out, "%s %supload: %s (%s) to %s\n",
			position(event), l.dryRunMark(), event.Item.LocalPath, FormatBytes(event.Item.Size), formatS3Path(l.Bucket, event.Key))
	case transfer.EventItemFinished:
		outcome := event.Outcome
		switch {
		case outcome.Status == transfer.StatusFailed:
			fmt.Fprintf(l.ErrOut, "%s failed: %s: %s\n", position(event), event.Item.RelPath, outcome.Error)
		case outcome.Skipped:
			fmt.Fprintf(l.Out, "%s skip: %s (already exists)\n", position(event), event.Item.RelPath)
		case l.DryRun:
		default:
			fmt.Fprintf(l.Out, "%s done: %s (%s in %s)\n",
				position(event), event.Item.RelPath, FormatBytes(outcome.Progress.BytesCompleted), outcome.Duration.Round(time.Millisecond))
		}
	case transfer.EventBatchFinished:
		PrintSummary(l.Out, *event.Summary)
	}
}

func (l *Console) dryRunMark() string {
	if l.DryRun {
		return "(dryrun) "
	}
	return ""
}

// Quiet prints failures as they happen and the summary only when something failed
type Quiet struct {
	ErrOut io.Writer
}

func (l *Quiet) Handle(event transfer.Event) {
	switch event.Kind {
	case transfer.EventItemFinished:
		if event.Outcome.Status == transfer.StatusFailed {
			fmt.Fprintf(l.ErrOut, "failed: %s: %s\n", event.Item.RelPath, event.Outcome.Error)
		}
	case transfer.EventBatchFinished:
		if !event.Summary.OK() {
			PrintSummary(l.ErrOut, *event.Summary)
		}
	}
}

type Null struct{}

func (l *Null) Handle(event transfer.Event) {}

// New picks the logger for the --quiet setting
func New(quiet, dryRun bool, bucket string, out, errOut io.Writer) transfer.EventSink {
	if quiet {
		return &Quiet{ErrOut: errOut}
	}
	return &Console{Out: out, ErrOut: errOut, Bucket: bucket, DryRun: dryRun}
}

// PrintSummary prints the totals of a batch and every failed item with its cause
func PrintSummary(w io.Writer, summary transfer.Summary) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Summary ===")
	fmt.Fprintf(w, "Total: %d files\n", summary.Total)
	fmt.Fprintf(w, "Succeeded: %d files (%s uploaded)\n", summary.Succeeded, FormatBytes(summary.BytesUploaded))
	if summary.Skipped > 0 {
		fmt.Fprintf(w, "Skipped: %d files (already present)\n", summary.Skipped)
	}
	if summary.Failed > 0 {
		fmt.Fprintf(w, "Failed: %d files\n", summary.Failed)
		for _, failure := range summary.FailedItems {
			fmt.Fprintf(w, "  - %s: %s\n", failure.RelPath, failure.Error)
		}
	}
	fmt.Fprintf(w, "Duration: %s\n", summary.Duration.Round(time.Millisecond))
}

// FormatBytes formats bytes in human readable format
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func position(event transfer.Event) string {
	return fmt.Sprintf("[%d/%d]", event.Index+1, event.Count)
}

func formatS3Path(bucket, key string) string {
	return fmt.Sprintf("s3://%s/%s", bucket, key)
}
