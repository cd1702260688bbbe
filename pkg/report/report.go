package report

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/yuya-takeyama/s3-bulk-upload/pkg/transfer"
)

const (
	ActionUploaded = "uploaded"
	ActionSkipped  = "skipped"
	ActionDryRun   = "dryrun"
)

// Result is the machine readable record of one batch
type Result struct {
	RunID   string      `json:"runId"`
	Bucket  string      `json:"bucket"`
	Prefix  string      `json:"prefix"`
	DryRun  bool        `json:"dryRun"`
	Files   []File      `json:"files"`
	Errors  []ErrorFile `json:"errors"`
	Summary Summary     `json:"summary"`
}

type File struct {
	Action string `json:"action"`
	Source string `json:"source"`
	Target string `json:"target"`
	Bytes  int64  `json:"bytes"`
}

type ErrorFile struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Error  string `json:"error"`
}

type Summary struct {
	Total         int   `json:"total"`
	Succeeded     int   `json:"succeeded"`
	Skipped       int   `json:"skipped"`
	Failed        int   `json:"failed"`
	BytesUploaded int64 `json:"bytesUploaded"`
	DurationMs    int64 `json:"durationMs"`
}

// New builds a Result from the summary of a batch, keeping the batch order
func New(bucket, prefix string, dryRun bool, summary transfer.Summary) *Result {
	result := &Result{
		RunID:  uuid.NewString(),
		Bucket: bucket,
		Prefix: prefix,
		DryRun: dryRun,
		Files:  []File{},
		Errors: []ErrorFile{},
		Summary: Summary{
			Total:         summary.Total,
			Succeeded:     summary.Succeeded,
			Skipped:       summary.Skipped,
			Failed:        summary.Failed,
			BytesUploaded: summary.BytesUploaded,
			DurationMs:    summary.Duration.Milliseconds(),
		},
	}

	for _, outcome := range summary.Outcomes {
		target := fmt.Sprintf("s3://%s/%s", bucket, outcome.Key)
		if outcome.Status == transfer.StatusFailed {
			result.Errors = append(result.Errors, ErrorFile{
				Source: outcome.Item.LocalPath,
				Target: target,
				Error:  outcome.Error,
			})
			continue
		}

		file := File{
			Action: ActionUploaded,
			Source: outcome.Item.LocalPath,
			Target: target,
			Bytes:  outcome.Progress.BytesCompleted,
		}
		switch {
		case outcome.Skipped:
			file.Action = ActionSkipped
			file.Bytes = 0
		case dryRun:
			file.Action = ActionDryRun
		}
		result.Files = append(result.Files, file)
	}

	return result
}

// Write stores the result as indented JSON at path
func Write(path string, result *Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}
