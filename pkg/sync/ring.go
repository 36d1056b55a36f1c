package sync

import (
	"encoding/binary"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
	"github.com/spaolacci/murmur3"
)

// ring is a consistent hash ring over a fixed number of shards.
type ring struct {
	points *treemap.Map

	// first caches the shard at the lowest point, which keys hashing past the
	// last point wrap around to.
	first int
}

// newRing places replicas points per shard on the ring.
func newRing(shards, replicas uint) *ring {
	points := treemap.NewWith(utils.Int64Comparator)

	buf := make([]byte, 8)
	for shard := uint(0); shard < shards; shard++ {
		for replica := uint(0); replica < replicas; replica++ {
			binary.LittleEndian.PutUint32(buf[:4], uint32(shard))
			binary.LittleEndian.PutUint32(buf[4:], uint32(replica))
			points.Put(hash(buf), int(shard))
		}
	}

	r := &ring{points: points}
	if _, first := points.Min(); first != nil {
		r.first = first.(int)
	}
	return r
}

func (r *ring) shard(key []byte) int {
	if _, shard := r.points.Ceiling(hash(key)); shard != nil {
		return shard.(int)
	}
	return r.first
}

func hash(data []byte) int64 {
	h, _ := murmur3.Sum128(data)
	return int64(h)
}
