package storage

import (
	"testing"
	"time"

	"github.com/poiesic/recall/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalSourceRecord(t *testing.T) {
	record := &core.SourceRecord{
		UniqueKey:       "WebSource_abc123",
		SourceType:      "WebSource",
		ChunksProcessed: 42,
		Metadata: map[string]string{
			"source": "https://example.com",
			"url":    "https://example.com",
		},
	}

	decoded, err := UnmarshalSourceRecord(MarshalSourceRecord(record))
	require.NoError(t, err)
	assert.Equal(t, record, decoded)
}

func TestMarshalSourceRecordDeterministic(t *testing.T) {
	record := &core.SourceRecord{
		UniqueKey:  "TextSource_k",
		SourceType: "TextSource",
		Metadata:   map[string]string{"b": "2", "a": "1", "c": "3"},
	}

	first := MarshalSourceRecord(record)
	for range 10 {
		assert.Equal(t, first, MarshalSourceRecord(record))
	}
}

func TestMarshalUnmarshalMessage(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	tests := []struct {
		name    string
		message *core.Message
	}{
		{
			"human turn without sources",
			&core.Message{
				ID:        "m1",
				Timestamp: now,
				Actor:     core.ActorHuman,
				Content:   "what is recall?",
			},
		},
		{
			"ai turn with sources",
			&core.Message{
				ID:        "m2",
				Timestamp: now,
				Actor:     core.ActorAI,
				Content:   "recall is a retrieval layer",
				Sources: []core.SourceRef{
					{Source: "https://example.com", SourceKey: "WebSource_x"},
					{Source: "notes.txt", SourceKey: "LocalFileSource_y"},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := UnmarshalMessage(MarshalMessage(tt.message))
			require.NoError(t, err)
			assert.Equal(t, tt.message, decoded)
		})
	}
}

func TestMarshalUnmarshalEmbeddedChunk(t *testing.T) {
	chunk := &core.EmbeddedChunk{
		FormattedChunk: core.FormattedChunk{
			Chunk: core.Chunk{
				PageContent: "some cleaned content",
				Metadata:    map[string]string{"type": "TextSource"},
				ContentHash: core.HashContent("some cleaned content"),
			},
			SourceKey: "TextSource_k",
			ChunkID:   core.ChunkID("TextSource_k", 3),
		},
		Vector: []float32{0.25, -0.5, 0.125, 1},
	}

	decoded, err := UnmarshalEmbeddedChunk(MarshalEmbeddedChunk(chunk))
	require.NoError(t, err)
	assert.Equal(t, chunk, decoded)
}

func TestUnmarshalTruncatedData(t *testing.T) {
	chunk := &core.EmbeddedChunk{
		FormattedChunk: core.FormattedChunk{
			Chunk:     core.Chunk{PageContent: "content"},
			SourceKey: "k",
			ChunkID:   "k_0",
		},
		Vector: []float32{1, 2, 3},
	}
	data := MarshalEmbeddedChunk(chunk)

	_, err := UnmarshalEmbeddedChunk(data[:len(data)/2])
	assert.Error(t, err)
}

func TestMarshalUnmarshalStringMap(t *testing.T) {
	value := map[string]string{"hash": "12345", "etag": "abc"}

	decoded, err := UnmarshalStringMap(MarshalStringMap(value))
	require.NoError(t, err)
	assert.Equal(t, value, decoded)

	empty, err := UnmarshalStringMap(MarshalStringMap(nil))
	require.NoError(t, err)
	assert.Nil(t, empty)
}
