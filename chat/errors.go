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

package chat

import "errors"

var (
	// ErrConversationStoreRequired is returned when no conversation
	// store is provided.
	ErrConversationStoreRequired = errors.New("conversation store is required")

	// ErrRetrieverRequired is returned when no retriever is provided.
	ErrRetrieverRequired = errors.New("retriever is required")

	// ErrModelNotSet is returned by Answer when no chat model was
	// configured. It is reported before any retrieval work happens.
	ErrModelNotSet = errors.New("chat model not set")

	// ErrEmptyQuery is returned when the query is empty after cleaning.
	ErrEmptyQuery = errors.New("query must not be empty")
)
