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

// ValidateMessageRecord validates a MessageRecord according to domain rules.
//
// Validation rules:
//   - Text must not be empty
//   - Role must be valid (user or assistant)
//   - Timestamp must not be in the future
//
// NOT validated:
//   - SourceID (0 is tolerated for records not yet bound to a source)
func ValidateMessageRecord(record *MessageRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidRecord)
	}

	if record.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptyText)
	}

	if err := ValidateRole(record.Role); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}

	if !IsValidTimestamp(record.Timestamp) {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrInvalidTimestamp)
	}

	return nil
}

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - ID must not be empty
//   - every record must pass ValidateMessageRecord
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.ID == "" {
		return fmt.Errorf("%w: id is empty", ErrInvalidChunk)
	}

	for i := range chunk.Records {
		if err := ValidateMessageRecord(&chunk.Records[i]); err != nil {
			return fmt.Errorf("%w: record %d: %w", ErrInvalidChunk, i, err)
		}
	}

	return nil
}

// ValidateJudgedEntry validates a JudgedEntry according to domain rules.
//
// Validation rules:
//   - Text must not be empty
//   - Importance must be within [1, 10]
//   - ContentHash must not be empty
func ValidateJudgedEntry(entry *JudgedEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: entry is nil", ErrInvalidEntry)
	}

	if entry.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEntry, ErrEmptyText)
	}

	if entry.Importance < 1 || entry.Importance > 10 {
		return fmt.Errorf("%w: %w: value %d", ErrInvalidEntry, ErrInvalidImportance, entry.Importance)
	}

	if entry.ContentHash == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEntry, ErrEmptyContentHash)
	}

	return nil
}

// ValidateRole validates that a Role has a valid value.
func ValidateRole(role Role) error {
	if role != RoleUser && role != RoleAssistant {
		return fmt.Errorf("%w: value %d", ErrInvalidRole, role)
	}
	return nil
}

// IsValidTimestamp checks if a timestamp is valid (not in the future).
func IsValidTimestamp(ts time.Time) bool {
	return !ts.After(time.Now())
}
