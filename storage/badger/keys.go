package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/poiesic/memstream/core"
)

// Key prefixes for different data types
const (
	sourcePrefix     = "srcrec"
	chunkPrefix      = "chkrec"
	chunkIDPrefix    = "chkid"
	chunkSeq         = "chkrecseq"
	queuePrefix      = "qrec"
	queueHashPrefix  = "qhash"
	queueSeq         = "qrecseq"
	indexStateRecKey = "idxstate"
)

// makeSourceKey generates a key for a source by ID.
func makeSourceKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", sourcePrefix, id))
}

// makeChunkKey generates a staging-ordered key for a chunk.
// Format: prefix:seq, seq in BigEndian so lexicographic sort is staging order.
func makeChunkKey(seq uint64) []byte {
	prefix := chunkPrefix + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], seq)
	return buf
}

// makeChunkIDKey generates the chunk id → seq index key.
func makeChunkIDKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", chunkIDPrefix, id))
}

// makeQueueKey generates an append-ordered key for a queue entry.
// Format: prefix:seq, seq in BigEndian so lexicographic sort is append order.
func makeQueueKey(seq uint64) []byte {
	prefix := queuePrefix + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], seq)
	return buf
}

// queueKeySeq extracts the sequence number from a queue entry key.
func queueKeySeq(key []byte) uint64 {
	return binary.BigEndian.Uint64(key[len(queuePrefix)+1:])
}

// makeQueueHashKey generates the dedup index key for a content hash.
func makeQueueHashKey(hash string) []byte {
	return []byte(fmt.Sprintf("%s:%s", queueHashPrefix, hash))
}

// makeIndexStateKey generates the key for the drainer's index state.
func makeIndexStateKey() []byte {
	return []byte(indexStateRecKey)
}
