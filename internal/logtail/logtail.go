// Package logtail reads and follows the log files the supervisor and its
// managed processes write.
package logtail

import (
	"bytes"
	"os"
	"strings"
)

// Log sources selectable from the CLI.
const (
	SourceDaemon   = "daemon"
	SourceProvider = "provider"
	SourceService  = "service"
)

// DefaultLines is how many lines a tail returns when the caller does not
// say otherwise.
const DefaultLines = 50

// blockSize is the chunk size for backward reads.
const blockSize = 8192

// Paths maps the log sources to their files on disk.
type Paths struct {
	// Daemon is the provider daemon's own log.
	Daemon string
	// Provider is the provider agent log.
	Provider string
	// Service is the supervisor's log file.
	Service string
}

// Resolve returns the file backing the given source. Unknown sources fall
// back to the daemon log.
func (p Paths) Resolve(source string) string {
	switch source {
	case SourceProvider:
		return p.Provider
	case SourceService:
		return p.Service
	default:
		return p.Daemon
	}
}

// Tail returns the last n lines of the file, oldest first. The file is read
// backwards in blocks so large logs are not loaded whole.
func Tail(path string, n int) ([]string, error) {
	if n <= 0 {
		n = DefaultLines
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := info.Size()
	if size == 0 {
		return nil, nil
	}

	var buf []byte
	offset := size
	for offset > 0 && bytes.Count(buf, []byte{'\n'}) <= n {
		step := int64(blockSize)
		if offset < step {
			step = offset
		}
		offset -= step

		chunk := make([]byte, step)
		if _, err := f.ReadAt(chunk, offset); err != nil {
			return nil, err
		}
		buf = append(chunk, buf...)
	}

	text := strings.TrimRight(string(buf), "\n")
	if text == "" {
		return nil, nil
	}
	lines := strings.Split(text, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}
