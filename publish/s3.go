package publish

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"slidestudio/config"
)

// objectAPI is the part of the S3 client the publisher uses.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Publisher uploads videos to <prefix>videos/<run id>.mp4.
type S3Publisher struct {
	api    objectAPI
	bucket string
	prefix string
}

// NewS3Publisher creates a publisher using the default AWS configuration
// chain with optional region, profile and path-style overrides.
func NewS3Publisher(ctx context.Context, cfg config.S3Settings) (*S3Publisher, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3: bucket not configured")
	}
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})
	return newS3Publisher(client, cfg.Bucket, cfg.Prefix), nil
}

func newS3Publisher(api objectAPI, bucket, prefix string) *S3Publisher {
	return &S3Publisher{api: api, bucket: bucket, prefix: prefix}
}

// Name implements Publisher.
func (p *S3Publisher) Name() string { return "s3" }

// Key returns the object key for a run's video.
func (p *S3Publisher) Key(runID string) string {
	return p.prefix + path.Join("videos", runID+".mp4")
}

// Publish implements Publisher. An object of the same size already at the
// key is treated as a previous upload of this video.
func (p *S3Publisher) Publish(ctx context.Context, runID, videoPath string, meta Metadata) (string, error) {
	f, err := os.Open(videoPath)
	if err != nil {
		return "", fmt.Errorf("open video: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", err
	}

	key := p.Key(runID)
	location := fmt.Sprintf("s3://%s/%s", p.bucket, key)

	size, exists, err := p.head(ctx, key)
	if err != nil {
		return "", fmt.Errorf("s3 head %s: %w", key, err)
	}
	if exists && size == info.Size() {
		log.Printf("⏭️  [publish] %s already uploaded", location)
		return location, nil
	}

	log.Printf("📤 [publish] uploading %s (%.2f MB) to %s", videoPath, float64(info.Size())/(1024*1024), location)
	_, err = p.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String("video/mp4"),
		Metadata:      map[string]string{"title": meta.Title},
	})
	if err != nil {
		return "", fmt.Errorf("s3 put %s: %w", key, err)
	}
	return location, nil
}

// head reports the size of the object at key, or exists=false on 404/NotFound.
func (p *S3Publisher) head(ctx context.Context, key string) (int64, bool, error) {
	out, err := p.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return aws.ToInt64(out.ContentLength), true, nil
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == 404 {
		return 0, false, nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound" {
		return 0, false, nil
	}
	return 0, false, err
}
