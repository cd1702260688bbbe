package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/yuya-takeyama/s3-bulk-upload/internal/config"
	"github.com/yuya-takeyama/s3-bulk-upload/pkg/s3client"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
	builtBy = "unknown"
)

// policyApplier is the part of *s3client.Bucket this command needs
type policyApplier interface {
	Name() string
	ApplyAccessPolicy(ctx context.Context, policy *s3client.AccessPolicy) error
}

type connectFunc func(ctx context.Context, cfg *config.Config, bucket string) (policyApplier, error)

func connectS3(ctx context.Context, cfg *config.Config, bucket string) (policyApplier, error) {
	session, err := s3client.Authorize(ctx, cfg.Credentials())
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

	rootCmd := newRootCmd(os.Stdout, connectS3)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer, connect connectFunc) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "s3-bucket-policy <S3Uri> --policy-file <file>",
		Short:         "Apply CORS rules and visibility to an S3-compatible bucket",
		Long:          `s3-bucket-policy makes a bucket's CORS rules and visibility match a policy file. Running it twice with the same file changes nothing.`,
		Version:       fmt.Sprintf("%s (commit: %s, built at: %s by %s)", version, commit, date, builtBy),
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd)
			if err != nil {
				return err
			}
			cfg.S3URI = args[0]

			if err := cfg.ValidatePolicy(); err != nil {
				return err
			}

			return run(cmd.Context(), cfg, out, connect)
		},
	}

	config.RegisterPolicyFlags(rootCmd)

	return rootCmd
}

func run(ctx context.Context, cfg *config.Config, out io.Writer, connect connectFunc) error {
	bucketName, _, err := s3client.ParseS3URI(cfg.S3URI)
	if err != nil {
		return err
	}

	policy, err := s3client.LoadAccessPolicy(cfg.PolicyFile)
	if err != nil {
		return err
	}

	bucket, err := connect(ctx, cfg, bucketName)
	if err != nil {
		return err
	}

	if err := bucket.ApplyAccessPolicy(ctx, policy); err != nil {
		return fmt.Errorf("apply policy to %s: %w", bucket.Name(), err)
	}

	fmt.Fprintf(out, "Applied %d CORS rules to s3://%s\n", len(policy.CORSRules), bucket.Name())
	if policy.Visibility != s3client.VisibilityUnchanged {
		fmt.Fprintf(out, "Visibility: %s\n", policy.Visibility)
	}

	return nil
}
