//go:build integration

package etcd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ory/dockertest/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/code-launchpad/pkg/etcdtest"
	"github.com/code-payments/code-launchpad/pkg/launchpad/metadata"
)

func TestStore(t *testing.T) {
	ctx := context.Background()

	pool, err := dockertest.NewPool("")
	require.NoError(t, err)

	client, teardown, err := etcdtest.StartEtcd(pool)
	require.NoError(t, err)
	defer teardown()

	store := New(client, "", "https://objects.example.com/")
	require.NoError(t, store.Probe(ctx))

	data := []byte(`{"name":"Test","symbol":"TST"}`)
	address := metadata.ContentAddress(data)

	uri, err := store.Put(ctx, address, "application/json", data)
	require.NoError(t, err)
	assert.Equal(t, "https://objects.example.com/"+address, uri)

	// Content addressed writes are idempotent
	uri2, err := store.Put(ctx, address, "application/json", data)
	require.NoError(t, err)
	assert.Equal(t, uri, uri2)

	actual, contentType, err := store.Get(ctx, address)
	require.NoError(t, err)
	assert.Equal(t, data, actual)
	assert.Equal(t, "application/json", contentType)

	_, _, err = store.Get(ctx, metadata.ContentAddress([]byte("missing")))
	assert.Equal(t, metadata.ErrObjectNotFound, err)

	_, err = store.Put(ctx, "../escape", "application/json", data)
	assert.Error(t, err)

	_, err = store.Put(ctx, "large", "application/octet-stream", make([]byte, MaxObjectSize+1))
	assert.Equal(t, ErrObjectTooLarge, err)

	server := httptest.NewServer(store)
	defer server.Close()

	resp, err := http.Get(server.URL + "/" + address)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json"))

	resp, err = http.Get(server.URL + "/missing")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
