package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"notes-go/internal/notes"
)

// fakeS3 keeps objects in a map keyed by bucket/key.
type fakeS3 struct {
	objects   map[string][]byte
	headErr   error
	uploadErr error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) HeadBucket(_ context.Context, _ *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) Upload(_ context.Context, in *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	return &manager.UploadOutput{}, nil
}

func TestS3Storage_PutAndGet(t *testing.T) {
	fake := newFakeS3()
	s := newS3StorageWithClients("test", "my-notes", "laptop", fake, fake)
	content := `{"notes":[],"categories":[]}`

	if err := s.Put("notes-app-data", strings.NewReader(content), int64(len(content))); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if _, ok := fake.objects["my-notes/laptop/notes-app-data"]; !ok {
		t.Fatalf("object not stored under prefixed key; have %v", fake.objects)
	}

	var buf bytes.Buffer
	if err := s.Get("notes-app-data", &buf); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if buf.String() != content {
		t.Errorf("Get() = %q, want %q", buf.String(), content)
	}
}

func TestS3Storage_NoPrefix(t *testing.T) {
	fake := newFakeS3()
	s := newS3StorageWithClients("test", "bucket", "", fake, fake)

	if err := s.Put("k", strings.NewReader("v"), 1); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if _, ok := fake.objects["bucket/k"]; !ok {
		t.Errorf("object not stored at bucket root; have %v", fake.objects)
	}
}

func TestS3Storage_GetMissing(t *testing.T) {
	fake := newFakeS3()
	s := newS3StorageWithClients("test", "bucket", "", fake, fake)

	err := s.Get("missing", &bytes.Buffer{})
	if !errors.Is(err, notes.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestS3Storage_UploadError(t *testing.T) {
	fake := newFakeS3()
	fake.uploadErr = errors.New("access denied")
	s := newS3StorageWithClients("test", "bucket", "", fake, fake)

	if err := s.Put("k", strings.NewReader("v"), 1); err == nil {
		t.Error("Put() expected error")
	}
}

func TestS3Storage_ValidateSetup(t *testing.T) {
	fake := newFakeS3()
	s := newS3StorageWithClients("test", "bucket", "", fake, fake)

	if err := s.ValidateSetup(); err != nil {
		t.Errorf("ValidateSetup() error = %v", err)
	}

	fake.headErr = errors.New("not found")
	if err := s.ValidateSetup(); err == nil {
		t.Error("ValidateSetup() expected error when bucket is unreachable")
	}
}

func TestNewS3Storage_RequiresBucket(t *testing.T) {
	if _, err := NewS3Storage(context.Background(), "test", S3Options{}); err == nil {
		t.Error("NewS3Storage() expected error without bucket")
	}
}
