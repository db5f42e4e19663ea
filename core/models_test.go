package core

import (
	"testing"
)

func TestContentHash(t *testing.T) {
	tests := []struct {
		name     string
		a        string
		b        string
		wantSame bool
	}{
		{
			name:     "identical text produces identical hash",
			a:        "We decided to switch to the cheaper model because of cost.",
			b:        "We decided to switch to the cheaper model because of cost.",
			wantSame: true,
		},
		{
			name:     "whitespace differences normalize away",
			a:        "  We decided   to switch\tproviders ",
			b:        "We decided to switch providers",
			wantSame: true,
		},
		{
			name:     "different text produces different hash",
			a:        "We decided to switch providers",
			b:        "We decided to keep the provider",
			wantSame: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h1 := ContentHash(tt.a)
			h2 := ContentHash(tt.b)

			if tt.wantSame && h1 != h2 {
				t.Errorf("ContentHash() produced different hashes: %s vs %s", h1, h2)
			}
			if !tt.wantSame && h1 == h2 {
				t.Errorf("ContentHash() produced same hash for different content")
			}
		})
	}
}

func TestContentHash_Length(t *testing.T) {
	h := ContentHash("anything")
	if len(h) != 16 {
		t.Errorf("ContentHash() length = %d, want 16 hex characters", len(h))
	}
}

func TestSourceIDFromPath(t *testing.T) {
	id1 := SourceIDFromPath("/var/log/transcripts/main.jsonl")
	id2 := SourceIDFromPath("/var/log/transcripts/main.jsonl")
	id3 := SourceIDFromPath("/var/log/transcripts/other.jsonl")

	if id1 != id2 {
		t.Errorf("SourceIDFromPath() produced different IDs for same path")
	}
	if id1 == id3 {
		t.Errorf("SourceIDFromPath() produced same ID for different paths")
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in     string
		want   Role
		wantOK bool
	}{
		{"user", RoleUser, true},
		{"human", RoleUser, true},
		{"assistant", RoleAssistant, true},
		{"ai", RoleAssistant, true},
		{"system", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseRole(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseRole(%q) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestClampImportance(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{-3, 1},
		{0, 1},
		{1, 1},
		{5, 5},
		{10, 10},
		{11, 10},
		{42, 10},
	}

	for _, tt := range tests {
		if got := ClampImportance(tt.in); got != tt.want {
			t.Errorf("ClampImportance(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
