package transcript

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/poiesic/memstream/core"
)

// rawLine is one line of an append-only JSONL transcript.
type rawLine struct {
	Role      string          `json:"role"`
	Content   json.RawMessage `json:"content"`
	Timestamp string          `json:"timestamp"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ParseLine parses a single transcript line into a MessageRecord bound to
// the given source. Content may be a plain string or an array of content
// blocks, in which case only text blocks contribute; tool_result lines are
// reported as empty and skipped by the caller.
func ParseLine(data []byte, sourceID core.ID) (core.MessageRecord, error) {
	var line rawLine
	if err := json.Unmarshal(data, &line); err != nil {
		return core.MessageRecord{}, fmt.Errorf("parse line: %w", err)
	}

	role, ok := core.ParseRole(line.Role)
	if !ok {
		return core.MessageRecord{}, fmt.Errorf("parse line: unknown role %q", line.Role)
	}

	text, err := extractText(line.Content)
	if err != nil {
		return core.MessageRecord{}, err
	}

	ts, _ := time.Parse(time.RFC3339Nano, line.Timestamp)

	return core.MessageRecord{
		Role:      role,
		Text:      text,
		Timestamp: ts,
		SourceID:  sourceID,
	}, nil
}

// extractText extracts the text content from a transcript message.
// Returns empty text for tool_result messages.
func extractText(content json.RawMessage) (string, error) {
	if content == nil {
		return "", nil
	}

	// Try as plain string first (some user messages).
	var plain string
	if err := json.Unmarshal(content, &plain); err == nil {
		return plain, nil
	}

	// Parse as content block array.
	var blocks []contentBlock
	if err := json.Unmarshal(content, &blocks); err != nil {
		return "", fmt.Errorf("parse line: content is neither string nor block array")
	}

	// tool_result blocks carry no conversational content.
	for _, b := range blocks {
		if b.Type == "tool_result" {
			return "", nil
		}
	}

	// Collect text blocks only (skip tool_use, thinking, etc.).
	var text string
	for _, b := range blocks {
		if b.Type == "text" && b.Text != "" {
			if text != "" {
				text += "\n"
			}
			text += b.Text
		}
	}

	return text, nil
}
