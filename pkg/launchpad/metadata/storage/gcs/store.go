package gcs

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"github.com/pkg/errors"

	"github.com/code-payments/code-launchpad/pkg/launchpad/metadata"
	"github.com/code-payments/code-launchpad/pkg/metrics"
)

const (
	metricsStructName = "metadata.storage.gcs"

	publicHost   = "https://storage.googleapis.com"
	cacheControl = "public, max-age=31536000, immutable"
)

type store struct {
	bucket     *gcs.BucketHandle
	bucketName string
}

// New returns a metadata.ObjectStore backed by a Firebase Storage bucket.
//
// Requires GOOGLE_APPLICATION_CREDENTIALS to be set:
// https://firebase.google.com/docs/admin/setup#initialize-sdk
func New(ctx context.Context, bucketName string) (metadata.ObjectStore, error) {
	app, err := firebase.NewApp(ctx, &firebase.Config{StorageBucket: bucketName})
	if err != nil {
		return nil, errors.Wrap(err, "error initializing firebase app")
	}

	client, err := app.Storage(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "error initializing firebase storage client")
	}

	bucket, err := client.Bucket(bucketName)
	if err != nil {
		return nil, errors.Wrap(err, "error getting storage bucket")
	}

	return NewFromBucket(bucket, bucketName), nil
}

// NewFromBucket wraps an existing bucket handle.
func NewFromBucket(bucket *gcs.BucketHandle, bucketName string) metadata.ObjectStore {
	return &store{
		bucket:     bucket,
		bucketName: bucketName,
	}
}

// Probe implements metadata.ObjectStore.Probe
func (s *store) Probe(ctx context.Context) error {
	defer metrics.TraceMethodCall(ctx, metricsStructName, "Probe").End()

	if _, err := s.bucket.Attrs(ctx); err != nil {
		return errors.Wrap(err, "error getting bucket attributes")
	}
	return nil
}

// Put implements metadata.ObjectStore.Put
func (s *store) Put(ctx context.Context, path, contentType string, data []byte) (string, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Put")
	defer tracer.End()

	w := s.bucket.Object(path).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = cacheControl

	if _, err := w.Write(data); err != nil {
		w.Close()
		tracer.OnError(err)
		return "", errors.Wrap(err, "error writing object")
	}

	if err := w.Close(); err != nil {
		tracer.OnError(err)
		return "", errors.Wrap(err, "error finalizing object")
	}

	return PublicURL(s.bucketName, path), nil
}

// PublicURL is the URL an object is publicly served from.
func PublicURL(bucketName, path string) string {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return fmt.Sprintf("%s/%s/%s", publicHost, bucketName, strings.Join(segments, "/"))
}
