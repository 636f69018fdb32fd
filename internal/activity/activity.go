// Package activity manages the shared append-only JSONL activity log. Agents
// append one JSON object per line; feed subscriptions tail new bytes by byte
// offset.
package activity

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"crewboard/internal/domain"
)

// ErrMalformedLine marks a complete line that did not parse as an activity
// entry. The reader stops before it so the caller can hold its cursor and
// retry on the next poll.
var ErrMalformedLine = errors.New("malformed activity line")

// Log appends entries to one activity log file. Writes are whole lines under
// a mutex, so concurrent appenders never interleave within a line.
type Log struct {
	Path string
	Now  func() time.Time

	mu sync.Mutex
}

func NewLog(path string) *Log {
	return &Log{Path: path, Now: time.Now}
}

// Append writes one entry as a single newline-terminated JSON line.
func (l *Log) Append(entry domain.ActivityEntry) (domain.ActivityEntry, error) {
	if entry.Agent == "" {
		return entry, fmt.Errorf("activity entry requires agent")
	}
	if entry.Message == "" {
		return entry, fmt.Errorf("activity entry requires message")
	}
	if entry.TS == "" {
		now := time.Now
		if l.Now != nil {
			now = l.Now
		}
		entry.TS = now().UTC().Format(time.RFC3339)
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return entry, err
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	f, err := os.OpenFile(l.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return entry, err
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return entry, err
	}
	return entry, nil
}

// TailEntry pairs a parsed entry with the file offset just past its line.
// Consumers advance their cursor to Offset only after delivering the entry.
type TailEntry struct {
	Entry  domain.ActivityEntry
	Offset int64
}

// ReadNew parses the complete lines appended past offset. It returns the
// entries it could parse in file order. A trailing line without a newline is
// left for a later read. A complete line that fails to parse stops the read
// at that line's start and returns ErrMalformedLine alongside the entries
// already parsed.
func ReadNew(path string, offset int64) ([]TailEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	var entries []TailEntry
	pos := offset
	for len(data) > 0 {
		nl := bytes.IndexByte(data, '\n')
		if nl < 0 {
			break
		}
		line := data[:nl]
		data = data[nl+1:]
		lineEnd := pos + int64(nl) + 1

		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 {
			pos = lineEnd
			continue
		}
		var entry domain.ActivityEntry
		if err := json.Unmarshal(trimmed, &entry); err != nil {
			return entries, fmt.Errorf("%w at offset %d: %v", ErrMalformedLine, pos, err)
		}
		entries = append(entries, TailEntry{Entry: entry, Offset: lineEnd})
		pos = lineEnd
	}
	return entries, nil
}

// Size returns the current log size, or zero if the file does not exist.
func Size(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	return info.Size(), nil
}
