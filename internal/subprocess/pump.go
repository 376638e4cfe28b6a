package subprocess

import (
	"bufio"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/wagiedev/crane-service-go/internal/codec"
)

const (
	// readChunkSize is the stdout read size.
	readChunkSize = 64 * 1024
	// maxStderrLineSize is the longest stderr line kept intact.
	maxStderrLineSize = 1024 * 1024 // 1MB
	// stderrTailLines is how many recent stderr lines an exit report carries.
	stderrTailLines = 50
)

// pumpStdout feeds raw stdout chunks through the line decoder and hands each
// reply to the handler. Undecodable lines are logged and skipped.
func (s *Supervisor) pumpStdout(r io.Reader) error {
	dec := codec.NewDecoder(s.options.MaxLineSize)
	buf := make([]byte, readChunkSize)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			lines, feedErr := dec.Feed(buf[:n])
			if feedErr != nil {
				s.metrics.ProtocolError()
				s.log.Warn("Discarded oversized worker output line", "error", feedErr)
			}

			for _, line := range lines {
				resp, parseErr := codec.Parse(line)
				if parseErr != nil {
					s.metrics.ProtocolError()
					s.log.Warn("Failed to parse worker output", "error", parseErr, "line", truncate(string(line), 200))

					continue
				}

				s.handler.HandleResponse(resp)
			}
		}

		if err != nil {
			if stderrors.Is(err, io.EOF) || stderrors.Is(err, os.ErrClosed) {
				if dec.Buffered() > 0 {
					s.log.Debug("Worker output ended mid-line", "buffered", dec.Buffered())
				}

				return nil
			}

			return fmt.Errorf("read stdout: %w", err)
		}
	}
}

// pumpStderr reads diagnostic lines, logs them, flags the ones that look
// like failures and keeps a tail for the exit report.
func (s *Supervisor) pumpStderr(r io.Reader, tail *stderrTail) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxStderrLineSize)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		s.log.Debug("Worker stderr", "line", line)

		if isCritical(line) {
			s.log.Error("Worker reported a critical error", "line", line)
		}

		tail.add(line)

		if s.options.Stderr != nil {
			s.options.Stderr(line)
		}
	}

	if err := scanner.Err(); err != nil && !stderrors.Is(err, os.ErrClosed) {
		return fmt.Errorf("read stderr: %w", err)
	}

	return nil
}

// isCritical reports whether a stderr line mentions an error or a panic.
// The check is advisory and never fails a call.
func isCritical(line string) bool {
	lower := strings.ToLower(line)

	return strings.Contains(lower, "error") || strings.Contains(lower, "panic")
}

// stderrTail keeps the most recent stderr lines. It is written by the stderr
// pump and read only after the pump has finished.
type stderrTail struct {
	lines []string
	max   int
}

func newStderrTail(maxLines int) *stderrTail {
	return &stderrTail{max: maxLines}
}

func (t *stderrTail) add(line string) {
	if len(t.lines) == t.max {
		copy(t.lines, t.lines[1:])
		t.lines = t.lines[:t.max-1]
	}

	t.lines = append(t.lines, line)
}

func (t *stderrTail) String() string {
	return strings.Join(t.lines, "\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n] + "..."
}
