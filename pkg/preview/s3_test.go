package preview_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vango-dev/filestage/pkg/preview"
)

type fakeS3 struct {
	puts    map[string][]byte
	deletes []string
	putErr  error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, _ := io.ReadAll(in.Body)
	if f.puts == nil {
		f.puts = map[string][]byte{}
	}
	f.puts[*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deletes = append(f.deletes, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

type fakePresigner struct {
	err     error
	expires time.Duration
}

func (p *fakePresigner) PresignGetObject(_ context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	if p.err != nil {
		return nil, p.err
	}
	var opts s3.PresignOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	p.expires = opts.Expires
	return &v4.PresignedHTTPRequest{
		URL:    "https://bucket.example/" + *in.Key + "?sig=1",
		Method: http.MethodGet,
	}, nil
}

func TestS3Allocator_AllocateAndRevoke(t *testing.T) {
	ctx := context.Background()
	api := &fakeS3{}
	presigner := &fakePresigner{}
	alloc := preview.NewS3AllocatorWithAPI(api, presigner, "bucket", "previews/").
		WithURLExpiry(10 * time.Minute)

	url, err := alloc.Allocate(ctx, "k1", image("a.png"))
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if url != "https://bucket.example/previews/k1?sig=1" {
		t.Errorf("url = %q", url)
	}
	if string(api.puts["previews/k1"]) != "png" {
		t.Errorf("stored %q, want png", api.puts["previews/k1"])
	}
	if presigner.expires != 10*time.Minute {
		t.Errorf("expiry = %v, want 10m", presigner.expires)
	}

	if err := alloc.Revoke(ctx, "k1"); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if len(api.deletes) != 1 || api.deletes[0] != "previews/k1" {
		t.Errorf("deletes = %v", api.deletes)
	}
}

func TestS3Allocator_PutFailure(t *testing.T) {
	api := &fakeS3{putErr: errors.New("denied")}
	alloc := preview.NewS3AllocatorWithAPI(api, &fakePresigner{}, "bucket", "")

	if _, err := alloc.Allocate(context.Background(), "k", image("a.png")); err == nil {
		t.Fatal("expected error")
	}
}

func TestS3Allocator_PresignFailureDeletesObject(t *testing.T) {
	api := &fakeS3{}
	alloc := preview.NewS3AllocatorWithAPI(api, &fakePresigner{err: errors.New("no creds")}, "bucket", "p/")

	if _, err := alloc.Allocate(context.Background(), "k", image("a.png")); err == nil {
		t.Fatal("expected error")
	}
	if len(api.deletes) != 1 || api.deletes[0] != "p/k" {
		t.Errorf("deletes = %v, want [p/k]", api.deletes)
	}
}
