package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/yuya-takeyama/s3-bulk-upload/internal/config"
	"github.com/yuya-takeyama/s3-bulk-upload/pkg/discovery"
	"github.com/yuya-takeyama/s3-bulk-upload/pkg/logger"
	"github.com/yuya-takeyama/s3-bulk-upload/pkg/report"
	"github.com/yuya-takeyama/s3-bulk-upload/pkg/s3client"
	"github.com/yuya-takeyama/s3-bulk-upload/pkg/transfer"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
	builtBy = "unknown"
)

const (
	exitOK       = 0
	exitFailures = 1
	exitFatal    = 2
)

// exitError carries the process exit code of a finished run
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func fatal(err error) error {
	return &exitError{code: exitFatal, err: err}
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	return exitFatal
}

// connectFunc returns the writer for bucket; it must not be called before discovery succeeds
type connectFunc func(ctx context.Context, cfg *config.Config, bucket string) (transfer.Writer, error)

func connectS3(ctx context.Context, cfg *config.Config, bucket string) (transfer.Writer, error) {
	session, err := s3client.Authorize(ctx, cfg.Credentials(), s3client.WithPartSize(cfg.PartSize()))
	if err != nil {
		return nil, err
	}

	b, err := session.ResolveBucket(ctx, bucket)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rootCmd := newRootCmd(os.Stdout, os.Stderr, connectS3)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(exitCode(err))
}

func newRootCmd(out, errOut io.Writer, connect connectFunc) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "s3-bulk-upload <LocalPath> <S3Uri>",
		Short: "Upload every video file under a directory to an S3-compatible bucket",
		Long: `s3-bulk-upload finds the video files under a directory and uploads them one
by one to an S3-compatible bucket such as Backblaze B2. A failed file never stops
the batch; the summary lists every failure.`,
		Version:       fmt.Sprintf("%s (commit: %s, built at: %s by %s)", version, commit, date, builtBy),
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd)
			if err != nil {
				return fatal(err)
			}
			cfg.LocalPath = args[0]
			cfg.S3URI = args[1]

			if err := cfg.Validate(); err != nil {
				return fatal(err)
			}

			return run(cmd.Context(), cfg, out, errOut, connect)
		},
	}

	config.RegisterFlags(rootCmd)

	return rootCmd
}

func run(ctx context.Context, cfg *config.Config, out, errOut io.Writer, connect connectFunc) error {
	bucket, prefix, err := s3client.ParseS3URI(cfg.S3URI)
	if err != nil {
		return fatal(err)
	}

	found, err := discovery.Discover(cfg.LocalPath, cfg.DiscoveryOptions())
	if err != nil {
		return fatal(fmt.Errorf("failed to discover files: %w", err))
	}
	for _, warning := range found.Warnings {
		fmt.Fprintf(errOut, "warning: %v\n", warning)
	}

	// A dry run never writes, so it needs no credentials.
	var writer transfer.Writer
	if !cfg.DryRun {
		writer, err = connect(ctx, cfg, bucket)
		if err != nil {
			return fatal(err)
		}
	}

	orchestrator := transfer.New(writer,
		transfer.WithPolicy(cfg.Policy()),
		transfer.WithKeyPrefix(prefix),
		transfer.WithDryRun(cfg.DryRun),
		transfer.WithEventSink(logger.New(cfg.Quiet, cfg.DryRun, bucket, out, errOut)),
	)
	summary := orchestrator.Run(ctx, found.Items)

	if cfg.ResultJSONFile != "" {
		if err := report.Write(cfg.ResultJSONFile, report.New(bucket, prefix, cfg.DryRun, summary)); err != nil {
			return fatal(fmt.Errorf("failed to write result JSON: %w", err))
		}
	}

	if !summary.OK() {
		return &exitError{
			code: exitFailures,
			err:  fmt.Errorf("%d of %d uploads failed", summary.Failed, summary.Total),
		}
	}

	return nil
}
