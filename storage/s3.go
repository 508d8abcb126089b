// Package storage promotes encoded videos to S3-compatible object storage.
// It is optional: when no bucket is configured the pipeline serves
// artifacts from local disk instead.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

const presignExpiry = time.Hour

// Artifacts stores one encoded video per job under videos/{jobID}/output.mp4.
type Artifacts struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	publicURL string
}

// Config selects the bucket and how URLs are issued. PublicURL, when set
// (a CDN or public bucket endpoint), short-circuits presigning.
type Config struct {
	Bucket    string
	Region    string
	PublicURL string
}

// New creates an artifact store using the standard AWS config/credential
// chain. Returns an error when no bucket is configured; callers treat that
// as "remote storage disabled".
func New(ctx context.Context, cfg Config) (*Artifacts, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("no artifact bucket configured")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	return &Artifacts{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
	}, nil
}

func artifactKey(jobID string) string {
	return fmt.Sprintf("videos/%s/output.mp4", jobID)
}

// Upload stores the local artifact for jobID and returns its remote key.
// Called only after a successful encode; the caller removes the local file
// once the upload succeeds.
func (a *Artifacts) Upload(ctx context.Context, localPath, jobID string) (string, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open artifact: %w", err)
	}
	defer file.Close()

	key := artifactKey(jobID)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String("video/mp4"),
	})
	if err != nil {
		return "", fmt.Errorf("upload artifact for %s: %w", jobID, err)
	}
	return key, nil
}

// URLFor returns a retrievable URL for the job's artifact: the public URL
// when one is configured, otherwise a presigned GET.
func (a *Artifacts) URLFor(ctx context.Context, jobID string) (string, error) {
	key := artifactKey(jobID)
	if a.publicURL != "" {
		return a.publicURL + "/" + key, nil
	}

	req, err := a.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", fmt.Errorf("presign artifact for %s: %w", jobID, err)
	}
	return req.URL, nil
}

// Exists reports whether the job's artifact is present remotely. A 404 or
// NotFound API error is "no", anything else is treated the same way since
// the caller falls back to the local file.
func (a *Artifacts) Exists(ctx context.Context, jobID string) bool {
	_, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(artifactKey(jobID)),
	})
	if err == nil {
		return true
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == 404 {
		return false
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound" {
		return false
	}
	return false
}

// Delete removes the job's artifact; true on success.
func (a *Artifacts) Delete(ctx context.Context, jobID string) bool {
	_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(artifactKey(jobID)),
	})
	return err == nil
}
