package core

import (
	"encoding/binary"
	"encoding/hex"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// SourceIDFromPath generates the stable ID for a monitored transcript path.
func SourceIDFromPath(path string) ID {
	return IDFromContent(path)
}

// NormalizeText canonicalizes message text before hashing: leading and
// trailing whitespace is removed and internal runs of whitespace collapse
// to a single space. Two messages that differ only in whitespace produce
// the same content hash.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// ContentHash returns the stable hash of normalized text: the first 8 bytes
// of a BLAKE2b digest, hex encoded (16 characters). This is the dedup key
// for the durable queue and the vector index.
func ContentHash(text string) string {
	h, _ := blake2b.New(8, nil)
	h.Write([]byte(NormalizeText(text)))
	return hex.EncodeToString(h.Sum(nil))
}

// Role identifies the author of a transcript message.
type Role int

const (
	// RoleUser represents a human user.
	RoleUser Role = iota + 1
	// RoleAssistant represents an AI assistant.
	RoleAssistant
)

// ParseRole maps a transcript role string to a Role.
// Unknown roles return 0 and false.
func ParseRole(s string) (Role, bool) {
	switch s {
	case "user", "human":
		return RoleUser, true
	case "assistant", "ai":
		return RoleAssistant, true
	}
	return 0, false
}

// String returns the canonical transcript spelling of the role.
func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAssistant:
		return "assistant"
	}
	return "unknown"
}

// Source tracks a monitored transcript file and its read checkpoint.
// Offset and Records only ever increase; the checkpoint advances only after
// the extracted chunk has been durably staged.
type Source struct {
	ID              ID
	Path            string
	Offset          int64 // byte offset of the last fully consumed line
	Records         int64 // count of records already chunked
	LastCheckedAt   time.Time
	LastExtractedAt time.Time
}

// MessageRecord is one parsed transcript message.
type MessageRecord struct {
	Role      Role
	Text      string
	Timestamp time.Time
	SourceID  ID
}

// Chunk is a bounded batch of staged messages awaiting judgment.
// It is ephemeral: created by the extractor, deleted by the judge only after
// every record in it has been judged.
type Chunk struct {
	ID        string // uuid
	SourceID  ID
	Records   []MessageRecord
	CreatedAt time.Time
}

// Category classifies a judged message.
type Category string

const (
	CategorySentiment      Category = "sentiment"
	CategoryAcknowledgment Category = "acknowledgment"
	CategoryDecision       Category = "decision"
	CategoryDiscovery      Category = "discovery"
	CategoryImplementation Category = "implementation"
	CategoryIssue          Category = "issue"
	CategorySuccess        Category = "success"
	CategoryFeeling        Category = "feeling"
	CategoryPhilosophy     Category = "philosophy"
	CategoryOutcome        Category = "outcome"
)

// JudgedEntry is a message that passed the importance threshold, queued for
// indexing. The JSON shape is the external queue contract: one entry per
// line, timestamps in RFC 3339.
type JudgedEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	Category    Category  `json:"category"`
	Importance  int       `json:"importance"`
	Text        string    `json:"text"`
	ContentHash string    `json:"hash"`
	Source      string    `json:"source"`
}

// QueueItem is a JudgedEntry with its position in the durable queue.
type QueueItem struct {
	Seq   uint64
	Entry JudgedEntry
}

// IndexState tracks drain debounce and consumption progress.
type IndexState struct {
	LastIndexedSeq uint64
	LastRunAt      time.Time
}

// ClampImportance bounds an importance score to the valid [1, 10] range.
func ClampImportance(score int) int {
	if score < 1 {
		return 1
	}
	if score > 10 {
		return 10
	}
	return score
}
