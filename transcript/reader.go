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


package transcript

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/poiesic/memstream/core"
)

const maxLineSize = 10 * 1024 * 1024 // 10MB line buffer

// Result holds the outcome of one incremental read of a transcript file.
type Result struct {
	Records   []core.MessageRecord
	NewOffset int64 // byte offset after the last fully consumed line
	Skipped   int   // malformed or empty lines passed over
}

// ReadNew reads the transcript at path starting from the given byte offset
// and parses every complete new line into a MessageRecord. A trailing line
// without a newline is treated as a partial write and left for the next
// read: NewOffset never points into the middle of a line.
//
// Malformed lines and lines without conversational text are skipped and
// counted, never fatal. Only opening or reading the file can fail.
func ReadNew(path string, offset int64, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek transcript: %w", err)
	}

	sourceID := core.SourceIDFromPath(path)
	res := &Result{NewOffset: offset}

	reader := bufio.NewReaderSize(f, 64*1024)
	for {
		line, err := reader.ReadBytes('\n')
		if err == io.EOF {
			// Incomplete trailing line: the writer has not finished it
			// yet, so it stays unconsumed.
			if len(line) > 0 {
				logger.Debug("partial trailing line left for next cycle",
					"source", path, "bytes", len(line))
			}
			return res, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read transcript: %w", err)
		}
		if len(line) > maxLineSize {
			res.NewOffset += int64(len(line))
			res.Skipped++
			logger.Warn("oversized transcript line skipped", "source", path, "bytes", len(line))
			continue
		}

		res.NewOffset += int64(len(line))

		trimmed := trimLine(line)
		if len(trimmed) == 0 {
			res.Skipped++
			continue
		}

		record, perr := ParseLine(trimmed, sourceID)
		if perr != nil {
			res.Skipped++
			logger.Warn("malformed transcript line skipped", "source", path, "err", perr)
			continue
		}
		if record.Text == "" {
			res.Skipped++
			continue
		}

		res.Records = append(res.Records, record)
	}
}

// CountNew reports how many complete records exist past the offset without
// producing them. Used by the extractor to evaluate the batch gate cheaply.
func CountNew(path string, offset int64) (int, error) {
	res, err := ReadNew(path, offset, slog.New(slog.DiscardHandler))
	if err != nil {
		return 0, err
	}
	return len(res.Records), nil
}

func trimLine(line []byte) []byte {
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line
}
