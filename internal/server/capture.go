package server

import (
	"bufio"
	"io"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// outputTailLimit bounds how many captured lines are retained per child.
const outputTailLimit = 200

// outputCapture collects a child's stdout and stderr into a bounded tail so
// spawn failures can be diagnosed without streaming the server's output live.
type outputCapture struct {
	mu    sync.Mutex
	lines []string
	limit int

	stdoutReader *io.PipeReader
	stdoutWriter *io.PipeWriter
	stderrReader *io.PipeReader
	stderrWriter *io.PipeWriter

	group errgroup.Group
}

func newOutputCapture(limit int) *outputCapture {
	c := &outputCapture{limit: limit}
	c.stdoutReader, c.stdoutWriter = io.Pipe()
	c.stderrReader, c.stderrWriter = io.Pipe()

	c.group.Go(func() error { return c.consume(c.stdoutReader) })
	c.group.Go(func() error { return c.consume(c.stderrReader) })

	return c
}

func (c *outputCapture) consume(reader io.Reader) error {
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		c.append(scanner.Text())
	}
	return scanner.Err()
}

func (c *outputCapture) append(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, line)
	if len(c.lines) > c.limit {
		c.lines = c.lines[len(c.lines)-c.limit:]
	}
}

// close closes the capture pipes and waits for the consumers to drain.
func (c *outputCapture) close() {
	c.stdoutWriter.Close()
	c.stderrWriter.Close()
	_ = c.group.Wait()
}

// Tail returns the most recent captured lines, oldest first.
func (c *outputCapture) Tail() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *outputCapture) TailString() string {
	return strings.Join(c.Tail(), "\n")
}
