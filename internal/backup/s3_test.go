package backup

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakePutter struct {
	inputs []*s3.PutObjectInput
	bodies []string
	err    error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, string(body))
	return &s3.PutObjectOutput{}, nil
}

func TestS3Destination_Write(t *testing.T) {
	fixed := func() time.Time { return time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC) }
	tests := []struct {
		name    string
		key     string
		wantKey string
	}{
		{name: "fixed key", key: "emithub/backup.jsonl", wantKey: "emithub/backup.jsonl"},
		{name: "prefix", key: "emithub/", wantKey: "emithub/emithub-20260301T123000Z.jsonl"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fake := &fakePutter{}
			d := &S3Destination{api: fake, bucket: "backups", key: tc.key, Now: fixed}
			if err := d.Write(context.Background(), []byte("line\n")); err != nil {
				t.Fatalf("Write: %v", err)
			}
			if len(fake.inputs) != 1 {
				t.Fatalf("expected 1 upload, got %d", len(fake.inputs))
			}
			in := fake.inputs[0]
			if got := aws.ToString(in.Bucket); got != "backups" {
				t.Fatalf("bucket = %q", got)
			}
			if got := aws.ToString(in.Key); got != tc.wantKey {
				t.Fatalf("key = %q, want %q", got, tc.wantKey)
			}
			if got := aws.ToString(in.ContentType); got != ndjsonContentType {
				t.Fatalf("content type = %q", got)
			}
			if got := aws.ToInt64(in.ContentLength); got != 5 {
				t.Fatalf("content length = %d, want 5", got)
			}
			if fake.bodies[0] != "line\n" {
				t.Fatalf("body = %q", fake.bodies[0])
			}
		})
	}
}

func TestS3Destination_WriteError(t *testing.T) {
	boom := errors.New("access denied")
	d := &S3Destination{api: &fakePutter{err: boom}, bucket: "b", key: "k"}
	err := d.Write(context.Background(), []byte("x"))
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestNewS3Destination_RequiresBucketAndKey(t *testing.T) {
	if _, err := NewS3Destination(context.Background(), "", "k", "us-east-1", ""); err == nil {
		t.Fatal("expected error for empty bucket")
	}
	if _, err := NewS3Destination(context.Background(), "b", "", "us-east-1", ""); err == nil {
		t.Fatal("expected error for empty key")
	}
}
