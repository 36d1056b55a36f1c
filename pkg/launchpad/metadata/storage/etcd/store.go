package etcd

import (
	"context"
	"net/http"
	"path"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	v3 "go.etcd.io/etcd/client/v3"

	"github.com/code-payments/code-launchpad/pkg/launchpad/metadata"
	"github.com/code-payments/code-launchpad/pkg/metrics"
)

const (
	metricsStructName = "metadata.storage.etcd"

	// DefaultPrefix is the key prefix objects are written under.
	DefaultPrefix = "/launchpad/objects"

	// MaxObjectSize keeps values well under etcd's default request limit.
	MaxObjectSize = 1 << 20
)

var (
	ErrObjectTooLarge = errors.Errorf("object exceeds %d bytes", MaxObjectSize)
	ErrInvalidPath    = errors.New("invalid object path")
)

// Store is a content addressable metadata.ObjectStore on etcd. Objects are
// immutable once written, and are served over HTTP by the Store itself.
type Store struct {
	log        *logrus.Entry
	client     *v3.Client
	prefix     string
	gatewayURL string
}

var (
	_ metadata.ObjectStore = (*Store)(nil)
	_ http.Handler         = (*Store)(nil)
)

// New returns a Store whose public URLs are "<gatewayURL>/<path>".
func New(client *v3.Client, prefix, gatewayURL string) *Store {
	if len(prefix) == 0 {
		prefix = DefaultPrefix
	}
	return &Store{
		log:        logrus.StandardLogger().WithField("type", "metadata/storage/etcd"),
		client:     client,
		prefix:     strings.TrimRight(prefix, "/"),
		gatewayURL: strings.TrimRight(gatewayURL, "/"),
	}
}

// Probe implements metadata.ObjectStore.Probe
func (s *Store) Probe(ctx context.Context) error {
	defer metrics.TraceMethodCall(ctx, metricsStructName, "Probe").End()

	_, err := s.client.Get(ctx, s.prefix, v3.WithPrefix(), v3.WithCountOnly())
	if err != nil {
		return errors.Wrap(err, "error reaching etcd")
	}
	return nil
}

// Put implements metadata.ObjectStore.Put. Writing an existing path is a
// no-op, which is safe because paths are content addresses.
func (s *Store) Put(ctx context.Context, objectPath, contentType string, data []byte) (string, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Put")
	defer tracer.End()

	if err := validatePath(objectPath); err != nil {
		return "", err
	}
	if len(data) > MaxObjectSize {
		return "", ErrObjectTooLarge
	}

	dataKey, typeKey := s.keys(objectPath)
	_, err := s.client.Txn(ctx).
		If(v3.Compare(v3.CreateRevision(dataKey), "=", 0)).
		Then(
			v3.OpPut(dataKey, string(data)),
			v3.OpPut(typeKey, contentType),
		).
		Commit()
	if err != nil {
		tracer.OnError(err)
		return "", errors.Wrap(err, "error writing object")
	}

	return s.gatewayURL + "/" + objectPath, nil
}

// Get returns the object at objectPath and its content type.
func (s *Store) Get(ctx context.Context, objectPath string) ([]byte, string, error) {
	defer metrics.TraceMethodCall(ctx, metricsStructName, "Get").End()

	if err := validatePath(objectPath); err != nil {
		return nil, "", err
	}

	dataKey, typeKey := s.keys(objectPath)
	resp, err := s.client.Txn(ctx).
		Then(v3.OpGet(dataKey), v3.OpGet(typeKey)).
		Commit()
	if err != nil {
		return nil, "", errors.Wrap(err, "error reading object")
	}

	dataResp := resp.Responses[0].GetResponseRange()
	typeResp := resp.Responses[1].GetResponseRange()
	if dataResp == nil || len(dataResp.Kvs) == 0 {
		return nil, "", metadata.ErrObjectNotFound
	}

	contentType := "application/octet-stream"
	if typeResp != nil && len(typeResp.Kvs) > 0 {
		contentType = string(typeResp.Kvs[0].Value)
	}
	return dataResp.Kvs[0].Value, contentType, nil
}

// ServeHTTP serves GET /<path> from the store.
func (s *Store) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	objectPath := strings.TrimPrefix(r.URL.Path, "/")
	data, contentType, err := s.Get(r.Context(), objectPath)
	switch {
	case err == nil:
	case errors.Is(err, metadata.ErrObjectNotFound), errors.Is(err, ErrInvalidPath):
		http.NotFound(w, r)
		return
	default:
		s.log.WithError(err).WithField("path", objectPath).Warn("failure serving object")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	if r.Method == http.MethodHead {
		return
	}
	w.Write(data)
}

func (s *Store) keys(objectPath string) (dataKey, typeKey string) {
	return path.Join(s.prefix, "data", objectPath), path.Join(s.prefix, "type", objectPath)
}

func validatePath(objectPath string) error {
	if len(objectPath) == 0 || strings.Contains(objectPath, "..") || strings.HasPrefix(objectPath, "/") {
		return errors.Wrapf(ErrInvalidPath, "%q", objectPath)
	}
	return nil
}
