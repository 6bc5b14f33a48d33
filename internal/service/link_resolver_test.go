package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adjunct-search-go/internal/config"
)

func TestParseObjectRef(t *testing.T) {
	cases := []struct {
		ref    string
		bucket string
		key    string
		ok     bool
	}{
		{"s3://resume-storage/applicants/1/cv.pdf", "resume-storage", "applicants/1/cv.pdf", true},
		{"https://resume-storage.s3.us-east-2.amazonaws.com/resumes/jane%20doe.pdf", "resume-storage", "resumes/jane doe.pdf", true},
		{"https://legacy.s3.amazonaws.com/cv.pdf", "legacy", "cv.pdf", true},
		{"https://minio.internal:9000/resume-storage/a/b.pdf", "resume-storage", "a/b.pdf", true},
		{"https://s3.us-east-2.amazonaws.com/other-bucket/x.pdf", "other-bucket", "x.pdf", true},
		{"1700000000-cv.pdf", "default-bucket", "1700000000-cv.pdf", true},
		{"https://example.com/cv.pdf", "", "", false},
		{"ftp://host/cv.pdf", "", "", false},
		{"s3://bucket-only", "", "", false},
	}
	for _, c := range cases {
		bucket, key, ok := ParseObjectRef(c.ref, "default-bucket", "minio.internal")
		assert.Equal(t, c.ok, ok, c.ref)
		if c.ok {
			assert.Equal(t, c.bucket, bucket, c.ref)
			assert.Equal(t, c.key, key, c.ref)
		}
	}
}

type fakePresigner struct {
	err        error
	lastExpiry time.Duration
}

func (f *fakePresigner) PresignedGetObject(_ context.Context, bucket, key string, expires time.Duration, _ url.Values) (*url.URL, error) {
	f.lastExpiry = expires
	if f.err != nil {
		return nil, f.err
	}
	return &url.URL{Scheme: "https", Host: bucket + ".signed.test", Path: "/" + key, RawQuery: "sig=1"}, nil
}

func TestLinkResolver_Resolve(t *testing.T) {
	p := &fakePresigner{}
	r := NewLinkResolver(p, config.MinIOConfig{BucketName: "resume-storage", Endpoint: "s3.amazonaws.com", PresignExpiry: 30 * 24 * time.Hour})
	ctx := context.Background()

	assert.Equal(t, "", r.Resolve(ctx, ""))
	assert.Equal(t, "https://resume-storage.signed.test/cv.pdf?sig=1", r.Resolve(ctx, "cv.pdf"))
	assert.Equal(t, 7*24*time.Hour, p.lastExpiry)
	assert.Equal(t, "https://example.com/cv.pdf", r.Resolve(ctx, "https://example.com/cv.pdf"))
}

func TestLinkResolver_FallsBackOnSigningError(t *testing.T) {
	r := NewLinkResolver(&fakePresigner{err: errors.New("no credentials")}, config.MinIOConfig{BucketName: "b"})
	assert.Equal(t, "s3://b/k.pdf", r.Resolve(context.Background(), "s3://b/k.pdf"))
}

func TestLinkResolver_WithMinioClient(t *testing.T) {
	client, err := minio.New("s3.amazonaws.com", &minio.Options{
		Creds:  credentials.NewStaticV4("AKIAEXAMPLE", "secret", ""),
		Secure: true,
		Region: "us-east-2",
	})
	require.NoError(t, err)

	r := NewLinkResolver(client, config.MinIOConfig{BucketName: "resume-storage", Endpoint: "s3.amazonaws.com", PresignExpiry: 7 * 24 * time.Hour})
	link := r.Resolve(context.Background(), "s3://resume-storage/applicants/abc/cv.pdf")

	assert.True(t, strings.HasPrefix(link, "https://"), link)
	assert.Contains(t, link, "applicants/abc/cv.pdf")
	assert.Contains(t, link, "X-Amz-Expires=604800")
	assert.Contains(t, link, "X-Amz-Signature=")
}
