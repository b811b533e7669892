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

import "errors"

// Domain validation errors
var (
	// ErrInvalidSourceRecord indicates a SourceRecord failed validation.
	ErrInvalidSourceRecord = errors.New("invalid source record")

	// ErrInvalidMessage indicates a Message failed validation.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrEmptySourceKey indicates the UniqueKey field is empty.
	ErrEmptySourceKey = errors.New("source key cannot be empty")

	// ErrEmptySourceType indicates the SourceType field is empty.
	ErrEmptySourceType = errors.New("source type cannot be empty")

	// ErrNegativeChunkCount indicates a negative ChunksProcessed value.
	ErrNegativeChunkCount = errors.New("chunks processed cannot be negative")

	// ErrEmptyContent indicates the Content field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidActor indicates an invalid Actor value.
	ErrInvalidActor = errors.New("invalid actor")

	// ErrInvalidTimestamp indicates a timestamp is in the future.
	ErrInvalidTimestamp = errors.New("timestamp cannot be in the future")
)
