// Package publish uploads export artifacts to S3 or an S3-compatible store.
package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/keagan/tabreel/internal/export"
)

// ObjectAPI is the part of the S3 client the publisher uses
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Config selects the bucket and how to reach it. Empty values fall back to the
// standard AWS config and credential chain.
type Config struct {
	Bucket   string
	Region   string
	Prefix   string
	Endpoint string // S3-compatible endpoint; enables path-style addressing
}

// S3Publisher uploads artifacts under Prefix
type S3Publisher struct {
	client ObjectAPI
	cfg    Config
	logger zerolog.Logger
}

// NewS3 creates a publisher from the default AWS configuration chain
func NewS3(ctx context.Context, cfg Config, logger zerolog.Logger) (*S3Publisher, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("publish bucket is not configured")
	}

	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewWithClient(client, cfg, logger), nil
}

// NewWithClient creates a publisher over an existing client
func NewWithClient(client ObjectAPI, cfg Config, logger zerolog.Logger) *S3Publisher {
	return &S3Publisher{
		client: client,
		cfg:    cfg,
		logger: logger.With().Str("component", "publish").Logger(),
	}
}

// Publish uploads the artifact and returns its s3:// location. An existing
// object with the same name is never overwritten.
func (p *S3Publisher) Publish(ctx context.Context, artifact *export.Artifact) (string, error) {
	key := path.Join(p.cfg.Prefix, artifact.Filename)

	exists, err := p.exists(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to check %s: %w", key, err)
	}
	if exists {
		ext := path.Ext(key)
		key = strings.TrimSuffix(key, ext) + "-" + uuid.NewString()[:8] + ext
	}

	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:             aws.String(p.cfg.Bucket),
		Key:                aws.String(key),
		Body:               bytes.NewReader(artifact.Data),
		ContentLength:      aws.Int64(int64(len(artifact.Data))),
		ContentType:        aws.String(artifact.MIMEType),
		ContentDisposition: aws.String(fmt.Sprintf("attachment; filename=%q", path.Base(key))),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	location := fmt.Sprintf("s3://%s/%s", p.cfg.Bucket, key)
	p.logger.Info().
		Str("location", location).
		Int("bytes", len(artifact.Data)).
		Msg("artifact published")
	return location, nil
}

func (p *S3Publisher) exists(ctx context.Context, key string) (bool, error) {
	_, err := p.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(p.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == 404 {
		return false, nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound" {
		return false, nil
	}
	return false, err
}
