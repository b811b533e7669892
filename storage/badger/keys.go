package badger

import (
	"encoding/binary"
	"fmt"
)

// Key prefixes for different data types
const (
	sourceRecordPrefix  = "srcrec"
	scopedValuePrefix   = "srcval"
	conversationPrefix  = "convrec"
	convEntryPrefix     = "convent"
	vectorChunkPrefix   = "vecrec"
	vectorSourcePrefix  = "vecsrc"
	vectorDimensionsKey = "vecdim"
)

// makeSourceKey generates a key for a source record by unique key.
func makeSourceKey(uniqueKey string) []byte {
	return []byte(fmt.Sprintf("%s:%s", sourceRecordPrefix, uniqueKey))
}

// makeScopedValueKey generates a key for a scoped value.
// Format: prefix:sourceKey:key
func makeScopedValueKey(sourceKey, key string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", scopedValuePrefix, sourceKey, key))
}

// makeScopedValuePrefix generates the prefix covering every scoped
// value of one source.
func makeScopedValuePrefix(sourceKey string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", scopedValuePrefix, sourceKey))
}

// makeConversationKey generates a key for a conversation record.
func makeConversationKey(conversationID string) []byte {
	return []byte(fmt.Sprintf("%s:%s", conversationPrefix, conversationID))
}

// makeConvEntryKey generates a composite key for a conversation entry.
// The sequence is written BigEndian so lexicographic iteration yields
// append order. A zero byte separates the ID from the sequence since
// conversation IDs are caller-supplied.
func makeConvEntryKey(conversationID string, seq uint64) []byte {
	prefix := []byte(convEntryPrefix + ":" + conversationID)
	buf := make([]byte, len(prefix)+1+8)
	offset := copy(buf, prefix)
	buf[offset] = 0
	offset++
	binary.BigEndian.PutUint64(buf[offset:], seq)
	return buf
}

// makeConvEntryPrefix generates the prefix covering every entry of one
// conversation.
func makeConvEntryPrefix(conversationID string) []byte {
	prefix := []byte(convEntryPrefix + ":" + conversationID)
	buf := make([]byte, len(prefix)+1)
	copy(buf, prefix)
	buf[len(prefix)] = 0
	return buf
}

// makeVectorChunkKey generates a key for an embedded chunk by chunk ID.
func makeVectorChunkKey(chunkID string) []byte {
	return []byte(fmt.Sprintf("%s:%s", vectorChunkPrefix, chunkID))
}

// makeVectorSourceKey generates a composite key for the source index.
// Format: prefix:sourceKey:chunkID
func makeVectorSourceKey(sourceKey, chunkID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", vectorSourcePrefix, sourceKey, chunkID))
}

// makeVectorSourcePrefix generates the prefix covering every chunk of
// one source in the index.
func makeVectorSourcePrefix(sourceKey string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", vectorSourcePrefix, sourceKey))
}
