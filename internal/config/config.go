package config

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/yuya-takeyama/s3-bulk-upload/pkg/discovery"
	"github.com/yuya-takeyama/s3-bulk-upload/pkg/s3client"
	"github.com/yuya-takeyama/s3-bulk-upload/pkg/transfer"
)

const EnvPrefix = "BULK_UPLOAD"

const (
	keyConfig          = "config"
	keyExt             = "ext"
	keyExclude         = "exclude"
	keyOverwritePolicy = "overwrite-policy"
	keyBestEffort      = "best-effort"
	keyDryRun          = "dryrun"
	keyQuiet           = "quiet"
	keyEndpointURL     = "endpoint-url"
	keyPathStyle       = "path-style"
	keyRegion          = "region"
	keyProfile         = "profile"
	keyMaxAttempts     = "max-attempts"
	keyPartSizeMB      = "part-size-mb"
	keyResultJSONFile  = "result-json-file"
	keyPolicyFile      = "policy-file"
	keyKeyID           = "key-id"
	keyApplicationKey  = "application-key"
)

// Config is the fully resolved configuration of a command run
type Config struct {
	LocalPath string
	S3URI     string

	Extensions      []string
	Excludes        []string
	OverwritePolicy string
	BestEffort      bool
	DryRun          bool
	Quiet           bool

	EndpointURL    string
	PathStyle      bool
	Region         string
	Profile        string
	KeyID          string
	ApplicationKey string
	MaxAttempts    int
	PartSizeMB     int

	ResultJSONFile string
	PolicyFile     string
}

// RegisterFlags adds the upload flags to cmd
func RegisterFlags(cmd *cobra.Command) {
	registerConnectionFlags(cmd)
	flags := cmd.Flags()
	flags.StringSlice(keyExt, defaultExtensions(), "File extensions to upload (multiple allowed)")
	flags.StringSlice(keyExclude, nil, "Exclude patterns (multiple allowed)")
	flags.String(keyOverwritePolicy, string(transfer.OverwriteIfExists), "What to do when the object exists: overwrite or skip (skip needs HeadObject access; on AWS a missing key reads as 403 without s3:ListBucket)")
	flags.Bool(keyBestEffort, false, "Report unreadable directories as warnings instead of failing")
	flags.Bool(keyDryRun, false, "Shows operations without executing")
	flags.Bool(keyQuiet, false, "Suppress non-error output")
	flags.Int(keyPartSizeMB, 16, "Multipart upload part size in MiB")
	flags.String(keyResultJSONFile, "", "Path to output result as JSON file")
}

// RegisterPolicyFlags adds the bucket policy flags to cmd
func RegisterPolicyFlags(cmd *cobra.Command) {
	registerConnectionFlags(cmd)
	cmd.Flags().String(keyPolicyFile, "", "Path to the access policy file (yaml or json)")
}

func registerConnectionFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String(keyConfig, "", "Path to a config file (yaml, json or toml)")
	flags.String(keyEndpointURL, "", "S3-compatible endpoint, e.g. https://s3.us-west-004.backblazeb2.com")
	flags.Bool(keyPathStyle, false, "Use path-style addressing with --endpoint-url")
	flags.String(keyRegion, "", "Region (derived from a Backblaze endpoint if not specified)")
	flags.String(keyProfile, "", "AWS profile to use")
	flags.Int(keyMaxAttempts, 3, "Maximum attempts per request, including retries")
}

// Load resolves the configuration from flags, environment and the optional config file.
// Flags set on the command line win over the environment, which wins over the file.
// Positional arguments are left for the caller to fill in.
func Load(cmd *cobra.Command) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}
	if err := v.BindEnv(keyKeyID, EnvPrefix+"_KEY_ID", "B2_KEY_ID", "B2_APPLICATION_KEY_ID"); err != nil {
		return nil, err
	}
	if err := v.BindEnv(keyApplicationKey, EnvPrefix+"_APPLICATION_KEY", "B2_APPLICATION_KEY"); err != nil {
		return nil, err
	}

	if path := v.GetString(keyConfig); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		Extensions:      splitList(v.GetStringSlice(keyExt)),
		Excludes:        splitList(v.GetStringSlice(keyExclude)),
		OverwritePolicy: v.GetString(keyOverwritePolicy),
		BestEffort:      v.GetBool(keyBestEffort),
		DryRun:          v.GetBool(keyDryRun),
		Quiet:           v.GetBool(keyQuiet),
		EndpointURL:     v.GetString(keyEndpointURL),
		PathStyle:       v.GetBool(keyPathStyle),
		Region:          v.GetString(keyRegion),
		Profile:         v.GetString(keyProfile),
		KeyID:           v.GetString(keyKeyID),
		ApplicationKey:  v.GetString(keyApplicationKey),
		MaxAttempts:     v.GetInt(keyMaxAttempts),
		PartSizeMB:      v.GetInt(keyPartSizeMB),
		ResultJSONFile:  v.GetString(keyResultJSONFile),
		PolicyFile:      v.GetString(keyPolicyFile),
	}

	return cfg, nil
}

// Validate checks the configuration of an upload run
func (c *Config) Validate() error {
	if c.LocalPath == "" {
		return fmt.Errorf("local path is required")
	}

	if _, err := transfer.ParsePolicy(c.OverwritePolicy); err != nil {
		return err
	}

	if c.PartSizeMB <= 0 {
		return fmt.Errorf("part-size-mb must be positive")
	}

	return c.validateConnection()
}

// ValidatePolicy checks the configuration of a bucket policy run
func (c *Config) ValidatePolicy() error {
	if c.PolicyFile == "" {
		return fmt.Errorf("policy file is required")
	}

	return c.validateConnection()
}

func (c *Config) validateConnection() error {
	if _, _, err := s3client.ParseS3URI(c.S3URI); err != nil {
		return err
	}

	if c.MaxAttempts <= 0 {
		return fmt.Errorf("max-attempts must be positive")
	}

	if (c.KeyID == "") != (c.ApplicationKey == "") {
		return fmt.Errorf("key id and application key must be set together")
	}

	return nil
}

// Credentials returns what s3client.Authorize needs
func (c *Config) Credentials() s3client.Credentials {
	return s3client.Credentials{
		KeyID:       c.KeyID,
		Secret:      c.ApplicationKey,
		Profile:     c.Profile,
		Region:      c.Region,
		EndpointURL: c.EndpointURL,
		PathStyle:   c.PathStyle,
		MaxAttempts: c.MaxAttempts,
	}
}

// PartSize is the multipart part size in bytes
func (c *Config) PartSize() int64 {
	return int64(c.PartSizeMB) * 1024 * 1024
}

// Policy returns the parsed overwrite policy; call Validate first
func (c *Config) Policy() transfer.Policy {
	policy, _ := transfer.ParsePolicy(c.OverwritePolicy)
	return policy
}

func (c *Config) DiscoveryOptions() discovery.Options {
	return discovery.Options{
		Extensions: c.Extensions,
		Excludes:   c.Excludes,
		BestEffort: c.BestEffort,
	}
}

// splitList splits comma-separated elements; env values arrive as one string
// that viper only splits on whitespace.
func splitList(values []string) []string {
	var list []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				list = append(list, part)
			}
		}
	}
	return list
}

func defaultExtensions() []string {
	exts := make([]string, len(discovery.DefaultExtensions))
	copy(exts, discovery.DefaultExtensions)
	return exts
}
