package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/code-payments/code-launchpad/pkg/launchpad/metadata"
)

// Object is an uploaded object.
type Object struct {
	ContentType string
	Data        []byte
}

// Store is an in memory metadata.ObjectStore with injectable failures.
type Store struct {
	mu sync.Mutex

	baseURL  string
	objects  map[string]Object
	probeErr error
	putErr   error
	puts     int
}

var _ metadata.ObjectStore = (*Store)(nil)

// New returns a Store serving objects under baseURL.
func New(baseURL string) *Store {
	return &Store{
		baseURL: strings.TrimRight(baseURL, "/"),
		objects: make(map[string]Object),
	}
}

// Probe implements metadata.ObjectStore.Probe
func (s *Store) Probe(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return s.probeErr
}

// Put implements metadata.ObjectStore.Put
func (s *Store) Put(ctx context.Context, path, contentType string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.puts++

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.putErr != nil {
		return "", s.putErr
	}

	s.objects[path] = Object{
		ContentType: contentType,
		Data:        append([]byte(nil), data...),
	}
	return s.baseURL + "/" + path, nil
}

// SetProbeError makes Probe fail with err until cleared with nil.
func (s *Store) SetProbeError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.probeErr = err
}

// SetPutError makes Put fail with err until cleared with nil.
func (s *Store) SetPutError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putErr = err
}

// Get returns the object stored at path.
func (s *Store) Get(path string) (Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.objects[path]
	return obj, ok
}

// Len returns the number of stored objects.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// Puts returns the number of Put calls, including failed ones.
func (s *Store) Puts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}
