package subprocess

import (
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/crane-service-go/internal/codec"
	"github.com/wagiedev/crane-service-go/internal/config"
	"github.com/wagiedev/crane-service-go/internal/errors"
	"github.com/wagiedev/crane-service-go/internal/metrics"
)

// mockChunkReader delivers data in controlled chunks to simulate pipe reads.
type mockChunkReader struct {
	chunks [][]byte
	index  int
}

func newMockChunkReader(chunks ...string) *mockChunkReader {
	byteChunks := make([][]byte, len(chunks))
	for i, chunk := range chunks {
		byteChunks[i] = []byte(chunk)
	}

	return &mockChunkReader{chunks: byteChunks}
}

func (r *mockChunkReader) Read(p []byte) (int, error) {
	if r.index >= len(r.chunks) {
		return 0, io.EOF
	}

	chunk := r.chunks[r.index]
	r.index++

	n := copy(p, chunk)

	return n, nil
}

// recordingHandler implements Handler for testing.
type recordingHandler struct {
	mu        sync.Mutex
	responses []*codec.Response
	exits     chan *errors.ProcessTerminatedError
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{exits: make(chan *errors.ProcessTerminatedError, 4)}
}

func (h *recordingHandler) HandleResponse(resp *codec.Response) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.responses = append(h.responses, resp)
}

func (h *recordingHandler) HandleExit(err *errors.ProcessTerminatedError) {
	h.exits <- err
}

func (h *recordingHandler) getResponses() []*codec.Response {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]*codec.Response, len(h.responses))
	copy(out, h.responses)

	return out
}

// countingRecorder counts protocol errors.
type countingRecorder struct {
	metrics.NopRecorder

	mu             sync.Mutex
	protocolErrors int
}

func (c *countingRecorder) ProtocolError() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.protocolErrors++
}

func newPumpSupervisor(options *config.Options) (*Supervisor, *recordingHandler) {
	handler := newRecordingHandler()

	return NewSupervisor(slog.Default(), options, handler), handler
}

func TestPumpStdout_ReplySplitAcrossReads(t *testing.T) {
	s, handler := newPumpSupervisor(&config.Options{})

	err := s.pumpStdout(newMockChunkReader(`{"resu`, `lt":true}`+"\n"))
	require.NoError(t, err)

	responses := handler.getResponses()
	require.Len(t, responses, 1)
	require.Equal(t, "true", string(responses[0].Result))
}

func TestPumpStdout_MultipleRepliesInOneRead(t *testing.T) {
	s, handler := newPumpSupervisor(&config.Options{})

	err := s.pumpStdout(newMockChunkReader(
		`{"result":"Model initialized successfully"}` + "\n" + `{"error":"Model not initialized"}` + "\n",
	))
	require.NoError(t, err)

	responses := handler.getResponses()
	require.Len(t, responses, 2)
	require.False(t, responses[0].IsError())
	require.Equal(t, "Model not initialized", responses[1].Error)
}

func TestPumpStdout_SkipsNoiseAndCountsIt(t *testing.T) {
	rec := &countingRecorder{}
	s, handler := newPumpSupervisor(&config.Options{Metrics: rec})

	err := s.pumpStdout(newMockChunkReader(
		"Compiling chat-service v0.1.0\n",
		"\n\n",
		`{"result":["qwen"]}`+"\n",
		"[1,2]\n",
	))
	require.NoError(t, err)

	require.Len(t, handler.getResponses(), 1)
	require.Equal(t, 2, rec.protocolErrors)
}

func TestPumpStdout_OversizedLine(t *testing.T) {
	rec := &countingRecorder{}
	s, handler := newPumpSupervisor(&config.Options{Metrics: rec, MaxLineSize: 32})

	err := s.pumpStdout(newMockChunkReader(
		`{"result":"`+strings.Repeat("x", 100)+`"}`+"\n",
		`{"result":1}`+"\n",
	))
	require.NoError(t, err)

	responses := handler.getResponses()
	require.Len(t, responses, 1)
	require.Equal(t, "1", string(responses[0].Result))
	require.Equal(t, 1, rec.protocolErrors)
}

func TestPumpStdout_TrailingFragmentDropped(t *testing.T) {
	s, handler := newPumpSupervisor(&config.Options{})

	err := s.pumpStdout(newMockChunkReader(`{"result":1}`+"\n", `{"result":`))
	require.NoError(t, err)
	require.Len(t, handler.getResponses(), 1)
}

func TestPumpStderr(t *testing.T) {
	var (
		mu    sync.Mutex
		lines []string
	)

	s, _ := newPumpSupervisor(&config.Options{
		Stderr: func(line string) {
			mu.Lock()
			defer mu.Unlock()

			lines = append(lines, line)
		},
	})

	tail := newStderrTail(2)

	err := s.pumpStderr(strings.NewReader(
		"[ChatService] Starting\n\n  thread 'main' panicked at x  \n[ChatService] Error: boom\n",
	), tail)
	require.NoError(t, err)

	require.Equal(t, []string{
		"[ChatService] Starting",
		"thread 'main' panicked at x",
		"[ChatService] Error: boom",
	}, lines)
	require.Equal(t, "thread 'main' panicked at x\n[ChatService] Error: boom", tail.String())
}

func TestIsCritical(t *testing.T) {
	require.True(t, isCritical("Service error: bad"))
	require.True(t, isCritical("ERROR loading weights"))
	require.True(t, isCritical("thread 'main' panicked"))
	require.False(t, isCritical("[ChatService] Model initialized successfully"))
}

func TestStderrTail(t *testing.T) {
	tail := newStderrTail(3)
	require.Empty(t, tail.String())

	for _, line := range []string{"a", "b", "c", "d", "e"} {
		tail.add(line)
	}

	require.Equal(t, "c\nd\ne", tail.String())
}
