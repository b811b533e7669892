package core

import (
	"errors"
	"testing"
	"time"
)

func TestValidateSourceRecord(t *testing.T) {
	tests := []struct {
		name    string
		record  *SourceRecord
		wantErr error
	}{
		{
			name: "valid record",
			record: &SourceRecord{
				UniqueKey:       "abc123",
				SourceType:      "TextSource",
				ChunksProcessed: 10,
			},
			wantErr: nil,
		},
		{
			name: "valid record with zero chunks",
			record: &SourceRecord{
				UniqueKey:       "abc123",
				SourceType:      "TextSource",
				ChunksProcessed: 0,
			},
			wantErr: nil,
		},
		{
			name: "valid record with metadata",
			record: &SourceRecord{
				UniqueKey:       "abc123",
				SourceType:      "WebSource",
				ChunksProcessed: 3,
				Metadata:        map[string]string{"url": "https://example.com"},
			},
			wantErr: nil,
		},
		{
			name:    "nil record",
			record:  nil,
			wantErr: ErrInvalidSourceRecord,
		},
		{
			name: "empty key",
			record: &SourceRecord{
				SourceType:      "TextSource",
				ChunksProcessed: 1,
			},
			wantErr: ErrEmptySourceKey,
		},
		{
			name: "empty type",
			record: &SourceRecord{
				UniqueKey:       "abc123",
				ChunksProcessed: 1,
			},
			wantErr: ErrEmptySourceType,
		},
		{
			name: "negative chunk count",
			record: &SourceRecord{
				UniqueKey:       "abc123",
				SourceType:      "TextSource",
				ChunksProcessed: -1,
			},
			wantErr: ErrNegativeChunkCount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSourceRecord(tt.record)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateSourceRecord() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateSourceRecord() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateMessage(t *testing.T) {
	validTime := time.Now().Add(-1 * time.Hour)
	futureTime := time.Now().Add(1 * time.Hour)

	tests := []struct {
		name    string
		message *Message
		wantErr error
	}{
		{
			name: "valid human message",
			message: &Message{
				ID:        "m1",
				Actor:     ActorHuman,
				Content:   "Hello",
				Timestamp: validTime,
			},
			wantErr: nil,
		},
		{
			name: "valid AI message with sources",
			message: &Message{
				ID:        "m2",
				Actor:     ActorAI,
				Content:   "Answer",
				Timestamp: validTime,
				Sources:   []SourceRef{{Source: "doc.txt", SourceKey: "abc"}},
			},
			wantErr: nil,
		},
		{
			name:    "nil message",
			message: nil,
			wantErr: ErrInvalidMessage,
		},
		{
			name: "empty content",
			message: &Message{
				ID:        "m3",
				Actor:     ActorHuman,
				Timestamp: validTime,
			},
			wantErr: ErrEmptyContent,
		},
		{
			name: "invalid actor",
			message: &Message{
				ID:        "m4",
				Actor:     Actor(0),
				Content:   "Hello",
				Timestamp: validTime,
			},
			wantErr: ErrInvalidActor,
		},
		{
			name: "future timestamp",
			message: &Message{
				ID:        "m5",
				Actor:     ActorHuman,
				Content:   "Hello",
				Timestamp: futureTime,
			},
			wantErr: ErrInvalidTimestamp,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMessage(tt.message)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateMessage() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateMessage() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateActor(t *testing.T) {
	for _, actor := range []Actor{ActorHuman, ActorAI, ActorSystem} {
		if err := ValidateActor(actor); err != nil {
			t.Errorf("ValidateActor(%v) unexpected error: %v", actor, err)
		}
	}
	if err := ValidateActor(Actor(42)); !errors.Is(err, ErrInvalidActor) {
		t.Errorf("ValidateActor(42) error = %v, want ErrInvalidActor", err)
	}
}
