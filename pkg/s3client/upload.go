package s3client

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/yuya-takeyama/s3-bulk-upload/pkg/transfer"
)

// Upload writes the file at localPath to key. Large files go through a
// multipart upload that is aborted on failure, so a failed upload never
// leaves a complete-looking object behind.
func (b *Bucket) Upload(ctx context.Context, localPath, key string, sink transfer.ProgressSink) error {
	file, err := os.Open(localPath)
	if err != nil {
		return &UploadError{Key: key, Err: fmt.Errorf("failed to open file: %w", err)}
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return &UploadError{Key: key, Err: fmt.Errorf("failed to stat file: %w", err)}
	}
	sink.SetTotal(info.Size())

	input := &s3.PutObjectInput{
		Bucket: aws.String(b.name),
		Key:    aws.String(key),
		Body:   &progressReader{r: file, sink: sink},
	}
	if contentType := guessContentType(localPath); contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := b.uploader.Upload(ctx, input); err != nil {
		return classifyObjectError(key, err)
	}

	return nil
}

// Exists reports whether an object is stored under key
func (b *Bucket) Exists(ctx context.Context, key string) (bool, error) {
	_, err := b.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.name),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	// AWS answers 403 for a missing key when the caller lacks s3:ListBucket
	if isAuthError(err) {
		return false, &AuthError{Err: fmt.Errorf("head object %s (existence check): %w", key, err)}
	}
	return false, fmt.Errorf("failed to head object %s: %w", key, err)
}

// progressReader reports every read to the sink
type progressReader struct {
	r    io.Reader
	sink transfer.ProgressSink
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.sink.Advance(int64(n))
	}
	return n, err
}
