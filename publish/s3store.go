package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3Store commits rendered articles to an S3 bucket. Each commit writes the
// content object plus a marker under commits/<idempotency-key>; a commit
// whose marker already exists is recognized as a duplicate and returns the
// recorded sha without writing again.
type S3Store struct {
	client *s3.Client
	bucket string
}

// S3Config configures the content bucket
type S3Config struct {
	Bucket string
	Region string
}

// NewS3Store creates the store using the standard AWS config chain
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &S3Store{client: s3.NewFromConfig(awsCfg), bucket: cfg.Bucket}, nil
}

// Commit writes the document unless the idempotency marker already exists
func (s *S3Store) Commit(ctx context.Context, key string, body []byte, idempotencyKey string) (string, error) {
	markerKey := "commits/" + idempotencyKey

	if sha, ok, err := s.readMarker(ctx, markerKey); err != nil {
		return "", fmt.Errorf("check commit marker: %w", err)
	} else if ok {
		return sha, nil
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("text/html; charset=utf-8"),
	})
	if err != nil {
		return "", fmt.Errorf("put content object: %w", err)
	}

	// The idempotency key doubles as the commit sha: it is a content hash
	sha := idempotencyKey
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(markerKey),
		Body:        bytes.NewReader([]byte(sha)),
		ContentType: aws.String("text/plain"),
	})
	if err != nil {
		return "", fmt.Errorf("put commit marker: %w", err)
	}

	return sha, nil
}

func (s *S3Store) readMarker(ctx context.Context, markerKey string) (string, bool, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(markerKey),
	})
	if err != nil {
		if isNotFound(err) {
			return "", false, nil
		}
		return "", false, err
	}
	defer out.Body.Close()

	sha, err := io.ReadAll(out.Body)
	if err != nil {
		return "", false, err
	}
	return string(sha), true, nil
}

func isNotFound(err error) bool {
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == 404 {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NotFound" || code == "NoSuchKey"
	}
	return false
}
