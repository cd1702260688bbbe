package s3client

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// mockAPI is a mock implementation of API for testing
type mockAPI struct {
	putObjectFunc     func(ctx context.Context, params *s3.PutObjectInput) (*s3.PutObjectOutput, error)
	uploadPartFunc    func(ctx context.Context, params *s3.UploadPartInput) (*s3.UploadPartOutput, error)
	headBucketFunc    func(ctx context.Context, params *s3.HeadBucketInput) (*s3.HeadBucketOutput, error)
	headObjectFunc    func(ctx context.Context, params *s3.HeadObjectInput) (*s3.HeadObjectOutput, error)
	putBucketCorsFunc func(ctx context.Context, params *s3.PutBucketCorsInput) (*s3.PutBucketCorsOutput, error)
	putBucketAclFunc  func(ctx context.Context, params *s3.PutBucketAclInput) (*s3.PutBucketAclOutput, error)

	putObjectBodies map[string][]byte
	uploadedParts   int
	completed       []string
	aborted         []string
}

func (m *mockAPI) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if params.Body != nil {
		data, err := io.ReadAll(params.Body)
		if err != nil {
			return nil, err
		}
		if m.putObjectBodies == nil {
			m.putObjectBodies = map[string][]byte{}
		}
		m.putObjectBodies[aws.ToString(params.Key)] = data
	}
	if m.putObjectFunc != nil {
		return m.putObjectFunc(ctx, params)
	}
	return &s3.PutObjectOutput{ETag: aws.String(`"etag"`)}, nil
}

func (m *mockAPI) UploadPart(ctx context.Context, params *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	if params.Body != nil {
		if _, err := io.Copy(io.Discard, params.Body); err != nil {
			return nil, err
		}
	}
	if m.uploadPartFunc != nil {
		return m.uploadPartFunc(ctx, params)
	}
	m.uploadedParts++
	return &s3.UploadPartOutput{ETag: aws.String(fmt.Sprintf(`"part-%d"`, aws.ToInt32(params.PartNumber)))}, nil
}

func (m *mockAPI) CreateMultipartUpload(ctx context.Context, params *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	return &s3.CreateMultipartUploadOutput{UploadId: aws.String("upload-1")}, nil
}

func (m *mockAPI) CompleteMultipartUpload(ctx context.Context, params *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	m.completed = append(m.completed, aws.ToString(params.Key))
	return &s3.CompleteMultipartUploadOutput{}, nil
}

func (m *mockAPI) AbortMultipartUpload(ctx context.Context, params *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	m.aborted = append(m.aborted, aws.ToString(params.Key))
	return &s3.AbortMultipartUploadOutput{}, nil
}

func (m *mockAPI) HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if m.headBucketFunc != nil {
		return m.headBucketFunc(ctx, params)
	}
	return &s3.HeadBucketOutput{}, nil
}

func (m *mockAPI) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if m.headObjectFunc != nil {
		return m.headObjectFunc(ctx, params)
	}
	return nil, fmt.Errorf("HeadObject not implemented")
}

func (m *mockAPI) PutBucketCors(ctx context.Context, params *s3.PutBucketCorsInput, optFns ...func(*s3.Options)) (*s3.PutBucketCorsOutput, error) {
	if m.putBucketCorsFunc != nil {
		return m.putBucketCorsFunc(ctx, params)
	}
	return &s3.PutBucketCorsOutput{}, nil
}

func (m *mockAPI) PutBucketAcl(ctx context.Context, params *s3.PutBucketAclInput, optFns ...func(*s3.Options)) (*s3.PutBucketAclOutput, error) {
	if m.putBucketAclFunc != nil {
		return m.putBucketAclFunc(ctx, params)
	}
	return &s3.PutBucketAclOutput{}, nil
}

// sinkRecorder is a transfer.ProgressSink that remembers what it was told
type sinkRecorder struct {
	totals    []int64
	completed int64
	advances  int
}

func (s *sinkRecorder) SetTotal(totalBytes int64) {
	s.totals = append(s.totals, totalBytes)
}

func (s *sinkRecorder) Advance(n int64) {
	s.completed += n
	s.advances++
}
