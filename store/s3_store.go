package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of *s3.Client used by S3Store.
//
//go:generate mockery --name=S3API --output=automock --outpkg=automock --case=underscore
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

var _ S3API = (*s3.Client)(nil)

// S3Store keeps the match log in one S3 object.
type S3Store struct {
	client S3API
	bucket string
	key    string
}

// NewS3Store stores the log under prefix+name in bucket. An empty name uses
// DefaultFileName.
func NewS3Store(client S3API, bucket, prefix, name string) *S3Store {
	if name == "" {
		name = DefaultFileName
	}
	return &S3Store{
		client: client,
		bucket: bucket,
		key:    prefix + name,
	}
}

func (s *S3Store) Key() string {
	return s.key
}

func (s *S3Store) Save(ctx context.Context, export Export) error {
	b, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("save log: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(b),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"total-moves": fmt.Sprint(export.TotalMoves),
			"saved-at":    export.Timestamp.UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return fmt.Errorf("s3 upload failed: %w", err)
	}
	return nil
}

// Load fetches the stored log. A missing object yields an empty export.
func (s *S3Store) Load(ctx context.Context) (Export, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return Export{}, nil
		}
		return Export{}, fmt.Errorf("s3 download failed: %w", err)
	}
	defer out.Body.Close()

	b, err := io.ReadAll(out.Body)
	if err != nil {
		return Export{}, fmt.Errorf("s3 download failed: %w", err)
	}
	var export Export
	if err := json.Unmarshal(b, &export); err != nil {
		return Export{}, fmt.Errorf("load log: %w", err)
	}
	if export.LogEntries == nil {
		export.LogEntries = []string{}
	}
	return export, nil
}

// S3Config describes how to reach the bucket.
type S3Config struct {
	Region   string
	Endpoint string
	// PathStyle addresses the bucket in the path, as S3 compatible servers
	// such as MinIO expect.
	PathStyle bool
}

// NewS3Client builds a client from cfg. Credentials come from the default AWS
// chain: environment, shared config and credentials files, SSO and IMDS.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}
