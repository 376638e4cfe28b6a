// Package testworker is a scriptable stand-in for the chat-service worker.
//
// Test binaries re-execute themselves as the worker: TestMain calls
// MaybeRun, which takes over the process when EnvEnable is set.
//
//	func TestMain(m *testing.M) {
//	    testworker.MaybeRun()
//	    os.Exit(m.Run())
//	}
//
// Behaviour is selected with environment variables so the supervisor's
// Options.Env can script each test.
package testworker

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// Environment variables understood by the fake worker.
const (
	// EnvEnable turns the current process into the fake worker when "1".
	EnvEnable = "CRANE_FAKE_WORKER"

	// EnvMode is a comma-separated list of modes:
	//
	//	split        write each reply in two chunks
	//	noise        write a non-JSON line and a blank line before each reply
	//	ignore-term  ignore SIGTERM
	//	exit-early   exit with EnvExitCode before reading any request
	//	silent       read requests but never reply
	//	echo-id      copy the request "id" into the reply
	//	stderr-panic write a panic line to stderr at startup
	//	linger       keep running after stdin is closed
	//	orphan       start a child that keeps stdout and stderr open after
	//	             the worker exits
	//	hold         sleep for EnvHoldDelay without reading, used by orphan
	EnvMode = "CRANE_FAKE_MODE"

	// EnvExitCode is the exit code used by exit-early and by chat messages
	// whose content is "crash" or "slow-crash". Defaults to 3.
	EnvExitCode = "CRANE_FAKE_EXIT_CODE"

	// EnvSlowDelay is how long a chat message with content "slow" or
	// "slow-crash" and an initialize whose path contains "slow" take, as a
	// Go duration. Defaults to 500ms.
	EnvSlowDelay = "CRANE_FAKE_SLOW_DELAY"

	// EnvHoldDelay is how long the hold mode sleeps. Defaults to 5s.
	EnvHoldDelay = "CRANE_FAKE_HOLD_DELAY"

	// EnvModels is a comma-separated list returned by list_models.
	EnvModels = "CRANE_FAKE_MODELS"
)

// Chat contents with special behaviour.
const (
	ContentCrash     = "crash"
	ContentSlow      = "slow"
	ContentSlowCrash = "slow-crash"
)

// DefaultModels is returned by list_models when EnvModels is unset.
var DefaultModels = []string{"qwen2.5-0.5b-instruct", "qwen2.5-1.5b-instruct"}

type request struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

type chatParams struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

type worker struct {
	modes     map[string]bool
	exitCode  int
	slowDelay time.Duration
	models    []string
	loaded    string
	holdDelay time.Duration
	out       io.Writer
	errOut    io.Writer
}

// MaybeRun runs the fake worker and exits when EnvEnable is "1".
// Otherwise it returns immediately.
func MaybeRun() {
	if os.Getenv(EnvEnable) != "1" {
		return
	}

	os.Exit(Run(os.Stdin, os.Stdout, os.Stderr))
}

// Run serves requests from in until it is closed and returns the exit code.
func Run(in io.Reader, out, errOut io.Writer) int {
	w := newWorker(out, errOut)

	if w.modes["hold"] {
		time.Sleep(w.holdDelay)

		return 0
	}

	if w.modes["ignore-term"] {
		signal.Ignore(syscall.SIGTERM)
	}

	fmt.Fprintln(errOut, "[ChatService] Starting crane-studynest chat service...")

	if w.modes["orphan"] {
		if err := startHolder(); err != nil {
			fmt.Fprintln(errOut, "Service error: start holder:", err)

			return 1
		}
	}

	if w.modes["stderr-panic"] {
		fmt.Fprintln(errOut, "thread 'main' panicked at src/lib.rs:1:1: boom")
	}

	if w.modes["exit-early"] {
		fmt.Fprintln(errOut, "Service error: exiting early")

		return w.exitCode
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var req request
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			w.reply(nil, map[string]any{"error": err.Error()})

			continue
		}

		if code, exit := w.handle(&req); exit {
			return code
		}
	}

	if w.modes["linger"] {
		time.Sleep(time.Hour)
	}

	return 0
}

func newWorker(out, errOut io.Writer) *worker {
	w := &worker{
		modes:     make(map[string]bool),
		exitCode:  3,
		slowDelay: 500 * time.Millisecond,
		holdDelay: 5 * time.Second,
		models:    DefaultModels,
		out:       out,
		errOut:    errOut,
	}

	for mode := range strings.SplitSeq(os.Getenv(EnvMode), ",") {
		if mode = strings.TrimSpace(mode); mode != "" {
			w.modes[mode] = true
		}
	}

	if v, err := strconv.Atoi(os.Getenv(EnvExitCode)); err == nil {
		w.exitCode = v
	}

	if d, err := time.ParseDuration(os.Getenv(EnvSlowDelay)); err == nil {
		w.slowDelay = d
	}

	if d, err := time.ParseDuration(os.Getenv(EnvHoldDelay)); err == nil {
		w.holdDelay = d
	}

	if v := os.Getenv(EnvModels); v != "" {
		w.models = strings.Split(v, ",")
	}

	return w
}

// handle answers one request. It reports whether the worker should exit.
func (w *worker) handle(req *request) (int, bool) {
	if w.modes["silent"] {
		return 0, false
	}

	switch req.Method {
	case "initialize":
		var params struct {
			ModelPath string `json:"model_path"`
		}

		_ = json.Unmarshal(req.Params, &params)

		switch {
		case params.ModelPath == "":
			w.reply(req, map[string]any{"error": "Missing model_path parameter"})
		case strings.Contains(params.ModelPath, "missing"):
			w.reply(req, map[string]any{"error": "Failed to load model: " + params.ModelPath + " not found"})
		default:
			fmt.Fprintln(w.errOut, "[ChatService] Initializing model:", params.ModelPath)

			if strings.Contains(params.ModelPath, "slow") {
				time.Sleep(w.slowDelay)
			}

			w.loaded = filepath.Base(params.ModelPath)
			w.reply(req, map[string]any{"result": "Model initialized successfully"})
		}

	case "chat":
		var params chatParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			w.reply(req, map[string]any{"error": err.Error()})

			return 0, false
		}

		if w.loaded == "" {
			w.reply(req, map[string]any{"error": "Model not initialized"})

			return 0, false
		}

		var last string
		if n := len(params.Messages); n > 0 {
			last = params.Messages[n-1].Content
		}

		switch last {
		case ContentCrash:
			fmt.Fprintln(w.errOut, "thread 'main' panicked: simulated crash")

			return w.exitCode, true
		case ContentSlow:
			time.Sleep(w.slowDelay)
		case ContentSlowCrash:
			time.Sleep(w.slowDelay)
			fmt.Fprintln(w.errOut, "thread 'main' panicked: simulated crash")

			return w.exitCode, true
		}

		w.reply(req, map[string]any{"result": map[string]any{
			"message": map[string]any{"role": "assistant", "content": "echo: " + last},
			"done":    true,
		}})

	case "list_models":
		w.reply(req, map[string]any{"result": w.models})

	default:
		w.reply(req, map[string]any{"error": "Unknown method: " + req.Method})
	}

	return 0, false
}

func (w *worker) reply(req *request, payload map[string]any) {
	if w.modes["echo-id"] && req != nil && len(req.ID) > 0 {
		payload["id"] = req.ID
	}

	data, err := json.Marshal(payload)
	if err != nil {
		fmt.Fprintln(w.errOut, "Service error:", err)

		return
	}

	data = append(data, '\n')

	if w.modes["noise"] {
		fmt.Fprint(w.out, "Loading weights...\n\n")
	}

	if w.modes["split"] {
		half := len(data) / 2
		_, _ = w.out.Write(data[:half])

		time.Sleep(5 * time.Millisecond)

		_, _ = w.out.Write(data[half:])

		return
	}

	_, _ = w.out.Write(data)
}

// startHolder re-executes the current binary in hold mode with this
// process's stdout and stderr, and does not wait for it.
func startHolder() error {
	self, err := os.Executable()
	if err != nil {
		return err
	}

	cmd := exec.Command(self)
	cmd.Env = append(os.Environ(), EnvMode+"=hold")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return err
	}

	return cmd.Process.Release()
}
