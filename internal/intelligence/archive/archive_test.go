package archive

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/minio/minio-go/v7"
)

type fakeObjects struct {
	exists  bool
	made    []string
	objects map[string][]byte
	types   map[string]string
	putErr  error
}

func (f *fakeObjects) BucketExists(context.Context, string) (bool, error) { return f.exists, nil }

func (f *fakeObjects) MakeBucket(_ context.Context, bucket string, _ minio.MakeBucketOptions) error {
	f.made = append(f.made, bucket)
	return nil
}

func (f *fakeObjects) PutObject(_ context.Context, _, object string, reader io.Reader, _ int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.putErr != nil {
		return minio.UploadInfo{}, f.putErr
	}
	data, _ := io.ReadAll(reader)
	f.objects[object] = data
	f.types[object] = opts.ContentType
	return minio.UploadInfo{Key: object, Size: int64(len(data))}, nil
}

func (f *fakeObjects) GetObject(context.Context, string, string, minio.GetObjectOptions) (*minio.Object, error) {
	return nil, errors.New("not supported")
}

func newFake() *fakeObjects {
	return &fakeObjects{objects: map[string][]byte{}, types: map[string]string{}}
}

func TestStoreWritesJSONUnderRunPrefix(t *testing.T) {
	objects := newFake()
	a := &Archive{client: objects, bucket: "bi-enrichment-raw"}

	key, err := a.Store(context.Background(), "run-1", "lead-9", []byte(`{"lead":{}}`))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if key != "runs/run-1/lead-9.json" {
		t.Fatalf("unexpected key %q", key)
	}
	if string(objects.objects[key]) != `{"lead":{}}` || objects.types[key] != "application/json" {
		t.Fatalf("unexpected object %q (%s)", objects.objects[key], objects.types[key])
	}
}

func TestStoreWrapsUploadError(t *testing.T) {
	objects := newFake()
	objects.putErr = errors.New("denied")
	a := &Archive{client: objects, bucket: "b"}

	if _, err := a.Store(context.Background(), "r", "l", []byte("{}")); !errors.Is(err, objects.putErr) {
		t.Fatalf("expected wrapped upload error, got %v", err)
	}
}

func TestEnsureBucketCreatesOnlyWhenMissing(t *testing.T) {
	objects := newFake()
	a := &Archive{client: objects, bucket: "bi-enrichment-raw"}
	if err := a.EnsureBucket(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	objects.exists = true
	_ = a.EnsureBucket(context.Background())
	if len(objects.made) != 1 || objects.made[0] != "bi-enrichment-raw" {
		t.Fatalf("expected one bucket creation, got %v", objects.made)
	}
}
