package s3client

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"sigs.k8s.io/yaml"
)

type Visibility string

const (
	VisibilityUnchanged Visibility = ""
	VisibilityPublic    Visibility = "public"
	VisibilityPrivate   Visibility = "private"
)

// CORSRule is one cross-origin rule. Operations are HTTP methods or the
// Backblaze names (s3_get, s3_put, ...).
type CORSRule struct {
	Name              string   `json:"name"`
	AllowedOrigins    []string `json:"allowedOrigins"`
	AllowedOperations []string `json:"allowedOperations"`
	AllowedHeaders    []string `json:"allowedHeaders,omitempty"`
	ExposeHeaders     []string `json:"exposeHeaders,omitempty"`
	MaxAgeSeconds     int32    `json:"maxAgeSeconds"`
}

// AccessPolicy is the desired CORS and visibility state of a bucket
type AccessPolicy struct {
	CORSRules  []CORSRule `json:"corsRules"`
	Visibility Visibility `json:"visibility,omitempty"`
}

var operationMethods = map[string]string{
	"s3_delete": "DELETE",
	"s3_get":    "GET",
	"s3_head":   "HEAD",
	"s3_post":   "POST",
	"s3_put":    "PUT",
	"delete":    "DELETE",
	"get":       "GET",
	"head":      "HEAD",
	"post":      "POST",
	"put":       "PUT",
}

// LoadAccessPolicy reads a policy from a YAML or JSON file and validates it
func LoadAccessPolicy(path string) (*AccessPolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}

	var policy AccessPolicy
	if err := yaml.UnmarshalStrict(data, &policy); err != nil {
		return nil, fmt.Errorf("failed to parse policy file %s: %w", path, err)
	}

	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy file %s: %w", path, err)
	}

	return &policy, nil
}

func (p *AccessPolicy) Validate() error {
	switch p.Visibility {
	case VisibilityUnchanged, VisibilityPublic, VisibilityPrivate:
	default:
		return fmt.Errorf("unknown visibility %q", p.Visibility)
	}

	if len(p.CORSRules) == 0 && p.Visibility == VisibilityUnchanged {
		return errors.New("policy has neither CORS rules nor visibility")
	}

	names := make(map[string]bool)
	for i, rule := range p.CORSRules {
		if rule.Name == "" {
			return fmt.Errorf("rule %d: name is required", i)
		}
		if names[rule.Name] {
			return fmt.Errorf("rule %q: duplicate name", rule.Name)
		}
		names[rule.Name] = true

		if len(rule.AllowedOrigins) == 0 {
			return fmt.Errorf("rule %q: at least one allowed origin is required", rule.Name)
		}
		if len(rule.AllowedOperations) == 0 {
			return fmt.Errorf("rule %q: at least one allowed operation is required", rule.Name)
		}
		if _, err := allowedMethods(rule.AllowedOperations); err != nil {
			return fmt.Errorf("rule %q: %w", rule.Name, err)
		}
		if rule.MaxAgeSeconds < 0 {
			return fmt.Errorf("rule %q: maxAgeSeconds must not be negative", rule.Name)
		}
	}

	return nil
}

// ApplyAccessPolicy replaces the bucket's CORS configuration and, when set,
// its visibility. Applying the same policy again leaves the bucket unchanged.
func (b *Bucket) ApplyAccessPolicy(ctx context.Context, policy *AccessPolicy) error {
	if err := policy.Validate(); err != nil {
		return err
	}

	if len(policy.CORSRules) > 0 {
		cors, err := buildCORSConfiguration(policy.CORSRules)
		if err != nil {
			return err
		}
		_, err = b.api.PutBucketCors(ctx, &s3.PutBucketCorsInput{
			Bucket:            aws.String(b.name),
			CORSConfiguration: cors,
		})
		if err != nil {
			return fmt.Errorf("failed to put bucket cors: %w", classifyBucketError(b.name, err))
		}
	}

	if acl, ok := cannedACL(policy.Visibility); ok {
		_, err := b.api.PutBucketAcl(ctx, &s3.PutBucketAclInput{
			Bucket: aws.String(b.name),
			ACL:    acl,
		})
		if err != nil {
			return fmt.Errorf("failed to put bucket acl: %w", classifyBucketError(b.name, err))
		}
	}

	return nil
}

func buildCORSConfiguration(rules []CORSRule) (*types.CORSConfiguration, error) {
	cors := &types.CORSConfiguration{}
	for _, rule := range rules {
		methods, err := allowedMethods(rule.AllowedOperations)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", rule.Name, err)
		}
		cors.CORSRules = append(cors.CORSRules, types.CORSRule{
			ID:             aws.String(rule.Name),
			AllowedOrigins: rule.AllowedOrigins,
			AllowedMethods: methods,
			AllowedHeaders: rule.AllowedHeaders,
			ExposeHeaders:  rule.ExposeHeaders,
			MaxAgeSeconds:  aws.Int32(rule.MaxAgeSeconds),
		})
	}
	return cors, nil
}

// allowedMethods maps operations to HTTP methods, dropping duplicates
func allowedMethods(operations []string) ([]string, error) {
	var methods []string
	seen := make(map[string]bool)
	for _, op := range operations {
		method, ok := operationMethods[strings.ToLower(strings.TrimSpace(op))]
		if !ok {
			return nil, fmt.Errorf("unsupported operation %q", op)
		}
		if seen[method] {
			continue
		}
		seen[method] = true
		methods = append(methods, method)
	}
	return methods, nil
}

func cannedACL(v Visibility) (types.BucketCannedACL, bool) {
	switch v {
	case VisibilityPublic:
		return types.BucketCannedACLPublicRead, true
	case VisibilityPrivate:
		return types.BucketCannedACLPrivate, true
	default:
		return "", false
	}
}
