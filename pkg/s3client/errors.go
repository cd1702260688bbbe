package s3client

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// AuthError means the store rejected or never received valid credentials
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authorization failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// BucketNotFoundError means the bucket does not exist
type BucketNotFoundError struct {
	Bucket string
	Err    error
}

func (e *BucketNotFoundError) Error() string {
	return fmt.Sprintf("bucket not found: %q", e.Bucket)
}

func (e *BucketNotFoundError) Unwrap() error {
	return e.Err
}

// UploadError is a failed write of a single object
type UploadError struct {
	Key string
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.Key, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

var authErrorCodes = map[string]bool{
	"AccessDenied":          true,
	"AccountProblem":        true,
	"ExpiredToken":          true,
	"InvalidAccessKeyId":    true,
	"InvalidClientTokenId":  true,
	"InvalidToken":          true,
	"SignatureDoesNotMatch": true,
	"Unauthorized":          true,
	"UnauthorizedAccess":    true,
}

var notFoundErrorCodes = map[string]bool{
	"NotFound":     true,
	"NoSuchBucket": true,
	"NoSuchKey":    true,
}

// isAuthError checks if the store rejected the request's credentials
func isAuthError(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && authErrorCodes[apiErr.ErrorCode()] {
		return true
	}
	status := httpStatusCode(err)
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

// isNotFound checks if the addressed bucket or object does not exist
func isNotFound(err error) bool {
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var noSuchBucket *types.NoSuchBucket
	if errors.As(err, &noSuchBucket) {
		return true
	}
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && notFoundErrorCodes[apiErr.ErrorCode()] {
		return true
	}
	return httpStatusCode(err) == http.StatusNotFound
}

func httpStatusCode(err error) int {
	var respErr interface{ HTTPStatusCode() int }
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode()
	}
	return 0
}

func classifyBucketError(bucket string, err error) error {
	switch {
	case isAuthError(err):
		return &AuthError{Err: err}
	case isNotFound(err):
		return &BucketNotFoundError{Bucket: bucket, Err: err}
	default:
		return fmt.Errorf("failed to resolve bucket %q: %w", bucket, err)
	}
}

func classifyObjectError(key string, err error) error {
	if isAuthError(err) {
		return &AuthError{Err: err}
	}
	return &UploadError{Key: key, Err: err}
}
