package backup

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const ndjsonContentType = "application/x-ndjson"

// putObjectAPI is the part of *s3.Client the destination uses.
type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Destination uploads exports to an S3-compatible bucket. A key ending in
// "/" is a prefix: each export gets its own timestamped object under it.
// Any other key is overwritten on every run.
type S3Destination struct {
	api    putObjectAPI
	bucket string
	key    string
	// Now overrides the clock used for prefixed object names.
	Now func() time.Time
}

// NewS3Destination loads the default AWS credential chain for region. A
// non-empty endpoint switches to path-style addressing for MinIO and
// similar services.
func NewS3Destination(ctx context.Context, bucket, key, region, endpoint string) (*S3Destination, error) {
	if bucket == "" || key == "" {
		return nil, fmt.Errorf("s3 destination needs a bucket and key")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Destination{api: client, bucket: bucket, key: key}, nil
}

func (d *S3Destination) String() string { return "s3://" + d.bucket + "/" + d.key }

func (d *S3Destination) objectKey() string {
	if strings.HasSuffix(d.key, "/") {
		return d.key + snapshotName(d.Now)
	}
	return d.key
}

// Write uploads one export.
func (d *S3Destination) Write(ctx context.Context, data []byte) error {
	key := d.objectKey()
	_, err := d.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(d.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(ndjsonContentType),
	})
	if err != nil {
		return fmt.Errorf("upload s3://%s/%s: %w", d.bucket, key, err)
	}
	return nil
}
