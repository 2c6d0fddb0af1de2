package publish

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"

	"github.com/keagan/tabreel/internal/export"
)

type fakeS3 struct {
	objects map[string][]byte
	types   map[string]string
	headErr error
	putErr  error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(in.Key)
	f.objects[key] = data
	f.types[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	if _, ok := f.objects[aws.ToString(in.Key)]; ok {
		return &s3.HeadObjectOutput{}, nil
	}
	return nil, &smithy.GenericAPIError{Code: "NotFound", Message: "not found"}
}

var artifact = &export.Artifact{
	Data:     []byte("mp4 bytes"),
	MIMEType: "video/mp4",
	Filename: "video-2024-03-09T14-05-07.mp4",
}

func TestPublish(t *testing.T) {
	client := newFakeS3()
	p := NewWithClient(client, Config{Bucket: "reels", Prefix: "exports"}, zerolog.Nop())

	loc, err := p.Publish(context.Background(), artifact)
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if loc != "s3://reels/exports/video-2024-03-09T14-05-07.mp4" {
		t.Errorf("location = %s", loc)
	}
	key := "exports/video-2024-03-09T14-05-07.mp4"
	if string(client.objects[key]) != "mp4 bytes" || client.types[key] != "video/mp4" {
		t.Errorf("object not stored correctly")
	}
}

func TestPublishDoesNotOverwrite(t *testing.T) {
	client := newFakeS3()
	client.objects["video-2024-03-09T14-05-07.mp4"] = []byte("older")
	p := NewWithClient(client, Config{Bucket: "reels"}, zerolog.Nop())

	loc, err := p.Publish(context.Background(), artifact)
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if !strings.HasPrefix(loc, "s3://reels/video-2024-03-09T14-05-07-") || !strings.HasSuffix(loc, ".mp4") {
		t.Errorf("expected a suffixed key, got %s", loc)
	}
	if string(client.objects["video-2024-03-09T14-05-07.mp4"]) != "older" {
		t.Error("existing object was overwritten")
	}
}

func TestPublishErrors(t *testing.T) {
	client := newFakeS3()
	client.headErr = errors.New("access denied")
	p := NewWithClient(client, Config{Bucket: "reels"}, zerolog.Nop())
	if _, err := p.Publish(context.Background(), artifact); err == nil {
		t.Error("expected head error to fail the publish")
	}

	client.headErr = nil
	client.putErr = errors.New("slow down")
	if _, err := p.Publish(context.Background(), artifact); err == nil {
		t.Error("expected put error to fail the publish")
	}
}

func TestNewS3RequiresBucket(t *testing.T) {
	if _, err := NewS3(context.Background(), Config{}, zerolog.Nop()); err == nil {
		t.Error("expected error without a bucket")
	}
}
