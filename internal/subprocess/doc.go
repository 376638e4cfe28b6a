// Package subprocess supervises the chat-service worker process.
//
// The Supervisor spawns the worker with piped stdin, stdout and stderr,
// pumps stdout through the line codec into a Handler, logs stderr, and
// reports every exit to the Handler exactly once. Shutdown is a two-step
// state machine: SIGTERM, then SIGKILL when the grace period elapses.
package subprocess
