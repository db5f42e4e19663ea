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


package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the pipeline configuration. A Config is built once at daemon
// startup and treated as immutable afterwards; every component receives it
// by value or keeps its own copy of the fields it needs.
type Config struct {
	// TranscriptDir is the directory of append-only transcript files
	// (one JSONL file per source) to monitor.
	TranscriptDir string

	// DataDir is the BadgerDB directory holding checkpoints, staged
	// chunks, the durable queue and index state.
	DataDir string

	// ShortMessageLength is the text length below which a message is only
	// eligible for the sentiment/acknowledgment categories. Default: 50.
	ShortMessageLength int

	// ImportanceThreshold is the minimum importance score a judged message
	// needs to be persisted to the queue. Default: 5.
	ImportanceThreshold int

	// MinBatch is the number of new records that triggers extraction
	// regardless of elapsed time. Default: 5.
	MinBatch int

	// MaxWait is the maximum time a source may go without extraction while
	// it has any new records. Default: 5m.
	MaxWait time.Duration

	// DebounceWindow suppresses an index run that starts less than this
	// long after the previous run completed. Default: 5s.
	DebounceWindow time.Duration

	// MaxIndexBatch caps the number of queue entries indexed per drain
	// run. Default: 50.
	MaxIndexBatch int

	// IndexTimeout bounds the indexing of a single entry. Default: 30s.
	IndexTimeout time.Duration

	// ExtractInterval, JudgeInterval and DrainInterval are the daemon tick
	// intervals. Defaults: 30s, 15s, 10s.
	ExtractInterval time.Duration
	JudgeInterval   time.Duration
	DrainInterval   time.Duration

	// Provenance tags queue entries with the judging origin, stored in the
	// entry's source field alongside the source id. Default: "judge".
	Provenance string
}

// Option is a functional option for configuring a Config.
type Option func(*Config)

// WithTranscriptDir sets the monitored transcript directory.
func WithTranscriptDir(dir string) Option {
	return func(c *Config) {
		c.TranscriptDir = dir
	}
}

// WithDataDir sets the BadgerDB data directory.
func WithDataDir(dir string) Option {
	return func(c *Config) {
		c.DataDir = dir
	}
}

// WithShortMessageLength sets the short-message length threshold.
func WithShortMessageLength(n int) Option {
	return func(c *Config) {
		c.ShortMessageLength = n
	}
}

// WithImportanceThreshold sets the minimum importance for persistence.
func WithImportanceThreshold(n int) Option {
	return func(c *Config) {
		c.ImportanceThreshold = n
	}
}

// WithMinBatch sets the record count that triggers extraction.
func WithMinBatch(n int) Option {
	return func(c *Config) {
		c.MinBatch = n
	}
}

// WithMaxWait sets the maximum wait before extracting pending records.
func WithMaxWait(d time.Duration) Option {
	return func(c *Config) {
		c.MaxWait = d
	}
}

// WithDebounceWindow sets the drain debounce window.
func WithDebounceWindow(d time.Duration) Option {
	return func(c *Config) {
		c.DebounceWindow = d
	}
}

// WithMaxIndexBatch sets the per-run indexing batch cap.
func WithMaxIndexBatch(n int) Option {
	return func(c *Config) {
		c.MaxIndexBatch = n
	}
}

// WithIndexTimeout sets the per-entry indexing timeout.
func WithIndexTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.IndexTimeout = d
	}
}

// WithIntervals sets the extractor, judge and drainer tick intervals.
func WithIntervals(extract, judge, drain time.Duration) Option {
	return func(c *Config) {
		c.ExtractInterval = extract
		c.JudgeInterval = judge
		c.DrainInterval = drain
	}
}

// WithProvenance sets the provenance tag for queue entries.
func WithProvenance(tag string) Option {
	return func(c *Config) {
		c.Provenance = tag
	}
}

// Default returns a Config with the documented defaults. Directory fields
// are empty and must be set before Validate passes.
func Default() *Config {
	return &Config{
		ShortMessageLength:  50,
		ImportanceThreshold: 5,
		MinBatch:            5,
		MaxWait:             5 * time.Minute,
		DebounceWindow:      5 * time.Second,
		MaxIndexBatch:       50,
		IndexTimeout:        30 * time.Second,
		ExtractInterval:     30 * time.Second,
		JudgeInterval:       15 * time.Second,
		DrainInterval:       10 * time.Second,
		Provenance:          "judge",
	}
}

// New creates a Config with the default values and applies the provided options.
func New(opts ...Option) *Config {
	cfg := Default()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Validate checks that the configuration is valid and complete.
// A validation failure is fatal at startup: the daemon refuses to start.
func (c *Config) Validate() error {
	if c.TranscriptDir == "" {
		return errors.New("config: TranscriptDir is required")
	}
	if c.DataDir == "" {
		return errors.New("config: DataDir is required")
	}
	if c.ShortMessageLength < 1 {
		return fmt.Errorf("config: ShortMessageLength must be positive, got %d", c.ShortMessageLength)
	}
	if c.ImportanceThreshold < 1 || c.ImportanceThreshold > 10 {
		return fmt.Errorf("config: ImportanceThreshold must be between 1 and 10, got %d", c.ImportanceThreshold)
	}
	if c.MinBatch < 1 {
		return fmt.Errorf("config: MinBatch must be positive, got %d", c.MinBatch)
	}
	if c.MaxWait <= 0 {
		return fmt.Errorf("config: MaxWait must be positive, got %s", c.MaxWait)
	}
	if c.DebounceWindow < 0 {
		return fmt.Errorf("config: DebounceWindow must not be negative, got %s", c.DebounceWindow)
	}
	if c.MaxIndexBatch < 1 {
		return fmt.Errorf("config: MaxIndexBatch must be positive, got %d", c.MaxIndexBatch)
	}
	if c.IndexTimeout <= 0 {
		return fmt.Errorf("config: IndexTimeout must be positive, got %s", c.IndexTimeout)
	}
	if c.ExtractInterval <= 0 || c.JudgeInterval <= 0 || c.DrainInterval <= 0 {
		return errors.New("config: daemon intervals must be positive")
	}
	if c.Provenance == "" {
		return errors.New("config: Provenance is required")
	}
	return nil
}
