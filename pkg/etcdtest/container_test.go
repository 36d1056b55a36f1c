package etcdtest

import (
	"context"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	v3 "go.etcd.io/etcd/client/v3"
)

func TestStartEtcd_LeasedKeysExpire(t *testing.T) {
	if testing.Short() {
		t.Skip("docker required")
	}

	ctx := context.Background()

	pool, err := dockertest.NewPool("")
	require.NoError(t, err)

	client, teardown, err := StartEtcd(pool)
	require.NoError(t, err)
	defer teardown()
	defer client.Close()

	lease, err := client.Grant(ctx, 1)
	require.NoError(t, err)

	_, err = client.Put(ctx, "/locks/mint", "holder", v3.WithLease(lease.ID))
	require.NoError(t, err)
	_, err = client.Put(ctx, "/metadata/object", "{}")
	require.NoError(t, err)

	get, err := client.Get(ctx, "/locks/", v3.WithPrefix())
	require.NoError(t, err)
	require.Len(t, get.Kvs, 1)
	assert.Equal(t, "holder", string(get.Kvs[0].Value))

	require.Eventually(t, func() bool {
		get, err := client.Get(ctx, "/locks/", v3.WithPrefix(), v3.WithCountOnly())
		return err == nil && get.Count == 0
	}, 10*time.Second, 250*time.Millisecond)

	get, err = client.Get(ctx, "/metadata/object")
	require.NoError(t, err)
	assert.Len(t, get.Kvs, 1)
}
