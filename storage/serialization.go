// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"slices"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"

	"github.com/poiesic/recall/core"
)

// Hand-composed MUS serializers for the stored record types. Field
// order is part of the on-disk format and must not change.

// MarshalSourceRecord serializes a SourceRecord to bytes.
func MarshalSourceRecord(record *core.SourceRecord) []byte {
	buf := make([]byte, SourceRecordMUS.Size(*record))
	SourceRecordMUS.Marshal(*record, buf)
	return buf
}

// UnmarshalSourceRecord deserializes a SourceRecord from bytes.
func UnmarshalSourceRecord(data []byte) (*core.SourceRecord, error) {
	record, _, err := SourceRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// MarshalMessage serializes a Message to bytes.
func MarshalMessage(message *core.Message) []byte {
	buf := make([]byte, MessageMUS.Size(*message))
	MessageMUS.Marshal(*message, buf)
	return buf
}

// UnmarshalMessage deserializes a Message from bytes.
func UnmarshalMessage(data []byte) (*core.Message, error) {
	message, _, err := MessageMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// MarshalEmbeddedChunk serializes an EmbeddedChunk to bytes.
func MarshalEmbeddedChunk(chunk *core.EmbeddedChunk) []byte {
	buf := make([]byte, EmbeddedChunkMUS.Size(*chunk))
	EmbeddedChunkMUS.Marshal(*chunk, buf)
	return buf
}

// UnmarshalEmbeddedChunk deserializes an EmbeddedChunk from bytes.
func UnmarshalEmbeddedChunk(data []byte) (*core.EmbeddedChunk, error) {
	chunk, _, err := EmbeddedChunkMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &chunk, nil
}

// MarshalStringMap serializes a scoped value map to bytes.
func MarshalStringMap(value map[string]string) []byte {
	buf := make([]byte, sizeStringMap(value))
	marshalStringMap(value, buf)
	return buf
}

// UnmarshalStringMap deserializes a scoped value map from bytes.
func UnmarshalStringMap(data []byte) (map[string]string, error) {
	value, _, err := unmarshalStringMap(data)
	return value, err
}

// SourceRecordMUS is the serializer for core.SourceRecord.
var SourceRecordMUS = sourceRecordMUS{}

type sourceRecordMUS struct{}

func (sourceRecordMUS) Marshal(r core.SourceRecord, bs []byte) (n int) {
	n = ord.String.Marshal(r.UniqueKey, bs)
	n += ord.String.Marshal(r.SourceType, bs[n:])
	n += varint.Int.Marshal(r.ChunksProcessed, bs[n:])
	n += marshalStringMap(r.Metadata, bs[n:])
	return n
}

func (sourceRecordMUS) Unmarshal(bs []byte) (r core.SourceRecord, n int, err error) {
	var m int
	if r.UniqueKey, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if r.SourceType, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if r.ChunksProcessed, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	r.Metadata, m, err = unmarshalStringMap(bs[n:])
	n += m
	return
}

func (sourceRecordMUS) Size(r core.SourceRecord) int {
	return ord.String.Size(r.UniqueKey) +
		ord.String.Size(r.SourceType) +
		varint.Int.Size(r.ChunksProcessed) +
		sizeStringMap(r.Metadata)
}

// MessageMUS is the serializer for core.Message. Timestamps are stored
// as microseconds since the Unix epoch, UTC.
var MessageMUS = messageMUS{}

type messageMUS struct{}

func (messageMUS) Marshal(msg core.Message, bs []byte) (n int) {
	n = ord.String.Marshal(msg.ID, bs)
	n += varint.Int64.Marshal(msg.Timestamp.UnixMicro(), bs[n:])
	n += varint.Int.Marshal(int(msg.Actor), bs[n:])
	n += ord.String.Marshal(msg.Content, bs[n:])
	n += varint.Int.Marshal(len(msg.Sources), bs[n:])
	for _, ref := range msg.Sources {
		n += ord.String.Marshal(ref.Source, bs[n:])
		n += ord.String.Marshal(ref.SourceKey, bs[n:])
	}
	return n
}

func (messageMUS) Unmarshal(bs []byte) (msg core.Message, n int, err error) {
	var m int
	if msg.ID, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	var micros int64
	if micros, m, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	msg.Timestamp = time.UnixMicro(micros).UTC()
	var actor int
	if actor, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	msg.Actor = core.Actor(actor)
	if msg.Content, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	var count int
	if count, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if count > 0 {
		msg.Sources = make([]core.SourceRef, count)
		for i := range count {
			if msg.Sources[i].Source, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
				return
			}
			n += m
			if msg.Sources[i].SourceKey, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
				return
			}
			n += m
		}
	}
	return
}

func (messageMUS) Size(msg core.Message) int {
	size := ord.String.Size(msg.ID) +
		varint.Int64.Size(msg.Timestamp.UnixMicro()) +
		varint.Int.Size(int(msg.Actor)) +
		ord.String.Size(msg.Content) +
		varint.Int.Size(len(msg.Sources))
	for _, ref := range msg.Sources {
		size += ord.String.Size(ref.Source) + ord.String.Size(ref.SourceKey)
	}
	return size
}

// EmbeddedChunkMUS is the serializer for core.EmbeddedChunk.
var EmbeddedChunkMUS = embeddedChunkMUS{}

type embeddedChunkMUS struct{}

func (embeddedChunkMUS) Marshal(c core.EmbeddedChunk, bs []byte) (n int) {
	n = ord.String.Marshal(c.SourceKey, bs)
	n += ord.String.Marshal(c.ChunkID, bs[n:])
	n += ord.String.Marshal(c.PageContent, bs[n:])
	n += varint.Uint64.Marshal(uint64(c.ContentHash), bs[n:])
	n += marshalStringMap(c.Metadata, bs[n:])
	n += varint.Int.Marshal(len(c.Vector), bs[n:])
	for _, v := range c.Vector {
		n += raw.Float32.Marshal(v, bs[n:])
	}
	return n
}

func (embeddedChunkMUS) Unmarshal(bs []byte) (c core.EmbeddedChunk, n int, err error) {
	var m int
	if c.SourceKey, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if c.ChunkID, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if c.PageContent, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	var hash uint64
	if hash, m, err = varint.Uint64.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	c.ContentHash = core.ContentHash(hash)
	if c.Metadata, m, err = unmarshalStringMap(bs[n:]); err != nil {
		return
	}
	n += m
	var count int
	if count, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if count > 0 {
		c.Vector = make([]float32, count)
		for i := range count {
			if c.Vector[i], m, err = raw.Float32.Unmarshal(bs[n:]); err != nil {
				return
			}
			n += m
		}
	}
	return
}

func (embeddedChunkMUS) Size(c core.EmbeddedChunk) int {
	size := ord.String.Size(c.SourceKey) +
		ord.String.Size(c.ChunkID) +
		ord.String.Size(c.PageContent) +
		varint.Uint64.Size(uint64(c.ContentHash)) +
		sizeStringMap(c.Metadata) +
		varint.Int.Size(len(c.Vector))
	for _, v := range c.Vector {
		size += raw.Float32.Size(v)
	}
	return size
}

// String maps are stored as a length followed by key/value pairs in
// sorted key order, so equal maps marshal to equal bytes.

func marshalStringMap(value map[string]string, bs []byte) (n int) {
	n = varint.Int.Marshal(len(value), bs)
	for _, key := range sortedKeys(value) {
		n += ord.String.Marshal(key, bs[n:])
		n += ord.String.Marshal(value[key], bs[n:])
	}
	return n
}

func unmarshalStringMap(bs []byte) (value map[string]string, n int, err error) {
	var count, m int
	if count, n, err = varint.Int.Unmarshal(bs); err != nil {
		return
	}
	if count == 0 {
		return nil, n, nil
	}
	value = make(map[string]string, count)
	for range count {
		var key, val string
		if key, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return
		}
		n += m
		if val, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return
		}
		n += m
		value[key] = val
	}
	return
}

func sizeStringMap(value map[string]string) int {
	size := varint.Int.Size(len(value))
	for key, val := range value {
		size += ord.String.Size(key) + ord.String.Size(val)
	}
	return size
}

func sortedKeys(value map[string]string) []string {
	keys := make([]string, 0, len(value))
	for key := range value {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}
