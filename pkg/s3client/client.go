package s3client

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	defaultRegion   = "us-east-1"
	defaultPartSize = 16 * 1024 * 1024 // 16MB
)

// API is the subset of *s3.Client used here
type API interface {
	manager.UploadAPIClient
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutBucketCors(ctx context.Context, params *s3.PutBucketCorsInput, optFns ...func(*s3.Options)) (*s3.PutBucketCorsOutput, error)
	PutBucketAcl(ctx context.Context, params *s3.PutBucketAclInput, optFns ...func(*s3.Options)) (*s3.PutBucketAclOutput, error)
}

// Credentials selects how the session authenticates and which endpoint it talks to.
// KeyID and Secret are optional; without them the SDK default chain is used.
type Credentials struct {
	KeyID        string
	Secret       string
	SessionToken string
	Profile      string
	Region       string
	EndpointURL  string
	PathStyle    bool
	MaxAttempts  int
}

// Session is an authorized connection to an S3-compatible store
type Session struct {
	api      API
	partSize int64
}

type SessionOption func(*Session)

// WithPartSize sets the multipart part size; values below the S3 minimum are raised to it
func WithPartSize(size int64) SessionOption {
	return func(s *Session) {
		if size < manager.MinUploadPartSize {
			size = manager.MinUploadPartSize
		}
		s.partSize = size
	}
}

// NewSession wraps an already configured client
func NewSession(api API, opts ...SessionOption) *Session {
	s := &Session{
		api:      api,
		partSize: defaultPartSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Authorize loads the AWS config for creds and checks that credentials can be retrieved.
func Authorize(ctx context.Context, creds Credentials, opts ...SessionOption) (*Session, error) {
	if (creds.KeyID == "") != (creds.Secret == "") {
		return nil, &AuthError{Err: errors.New("both key id and secret key must be set")}
	}

	region := creds.Region
	if region == "" {
		region = RegionFromEndpoint(creds.EndpointURL)
	}

	var configOpts []func(*config.LoadOptions) error
	if creds.Profile != "" {
		configOpts = append(configOpts, config.WithSharedConfigProfile(creds.Profile))
	}
	if region != "" {
		configOpts = append(configOpts, config.WithRegion(region))
	}
	if creds.KeyID != "" {
		configOpts = append(configOpts, config.WithCredentialsProvider(aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(creds.KeyID, creds.Secret, creds.SessionToken),
		)))
	}
	if creds.MaxAttempts > 0 {
		configOpts = append(configOpts, config.WithRetryMaxAttempts(creds.MaxAttempts))
	}
	if creds.EndpointURL != "" {
		// S3-compatible stores reject the default flexible checksums
		configOpts = append(configOpts,
			config.WithRequestChecksumCalculation(aws.RequestChecksumCalculationWhenRequired),
			config.WithResponseChecksumValidation(aws.ResponseChecksumValidationWhenRequired),
		)
	}

	cfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if cfg.Region == "" {
		cfg.Region = defaultRegion
	}

	if cfg.Credentials == nil {
		return nil, &AuthError{Err: errors.New("no credentials configured")}
	}
	if _, err := cfg.Credentials.Retrieve(ctx); err != nil {
		return nil, &AuthError{Err: err}
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if creds.EndpointURL != "" {
			o.BaseEndpoint = aws.String(creds.EndpointURL)
			o.UsePathStyle = creds.PathStyle
		}
	})

	return NewSession(client, opts...), nil
}

// ResolveBucket checks that the bucket exists and is reachable with the session's credentials
func (s *Session) ResolveBucket(ctx context.Context, name string) (*Bucket, error) {
	if name == "" {
		return nil, &BucketNotFoundError{Bucket: name, Err: errors.New("bucket name cannot be empty")}
	}

	_, err := s.api.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(name),
	})
	if err != nil {
		return nil, classifyBucketError(name, err)
	}

	return &Bucket{
		name: name,
		api:  s.api,
		uploader: manager.NewUploader(s.api, func(u *manager.Uploader) {
			u.PartSize = s.partSize
			u.Concurrency = 1
			u.LeavePartsOnError = false
		}),
	}, nil
}

// Bucket is a resolved bucket; it implements transfer.Writer
type Bucket struct {
	name     string
	api      API
	uploader *manager.Uploader
}

func (b *Bucket) Name() string {
	return b.name
}

var backblazeEndpoint = regexp.MustCompile(`^(?:https?://)?s3\.([a-z0-9-]+)\.backblazeb2\.com/?$`)

// RegionFromEndpoint extracts the region from a Backblaze B2 S3 endpoint
// (https://s3.REGION.backblazeb2.com). Other endpoints yield "".
func RegionFromEndpoint(endpoint string) string {
	m := backblazeEndpoint.FindStringSubmatch(endpoint)
	if m == nil {
		return ""
	}
	return m[1]
}
