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


package core

import (
	"fmt"
	"time"
)

// ValidateSourceRecord validates a SourceRecord according to domain rules.
//
// Validation rules:
//   - UniqueKey must not be empty
//   - SourceType must not be empty
//   - ChunksProcessed must not be negative
//
// NOT validated:
//   - Metadata (free-form display data, may be empty)
func ValidateSourceRecord(record *SourceRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidSourceRecord)
	}

	if record.UniqueKey == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSourceRecord, ErrEmptySourceKey)
	}

	if record.SourceType == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSourceRecord, ErrEmptySourceType)
	}

	if record.ChunksProcessed < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidSourceRecord, ErrNegativeChunkCount)
	}

	return nil
}

// ValidateMessage validates a conversation Message according to domain rules.
//
// Validation rules:
//   - Content must not be empty
//   - Actor must be valid (Human, AI or System)
//   - Timestamp must not be in the future
//
// NOT validated:
//   - Sources (only populated on AI messages)
//   - ID (assigned by the assembler)
func ValidateMessage(message *Message) error {
	if message == nil {
		return fmt.Errorf("%w: message is nil", ErrInvalidMessage)
	}

	if message.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, ErrEmptyContent)
	}

	if err := ValidateActor(message.Actor); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}

	if !IsValidTimestamp(message.Timestamp) {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, ErrInvalidTimestamp)
	}

	return nil
}

// ValidateActor validates that an Actor has a valid value.
func ValidateActor(actor Actor) error {
	if actor != ActorHuman && actor != ActorAI && actor != ActorSystem {
		return fmt.Errorf("%w: value %d", ErrInvalidActor, actor)
	}
	return nil
}

// IsValidTimestamp checks if a timestamp is valid (not in the future).
func IsValidTimestamp(ts time.Time) bool {
	return !ts.After(time.Now())
}
