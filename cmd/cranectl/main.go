// Command cranectl drives a local chat-service worker from the terminal.
//
// It lists model checkpoints on disk, chats with a loaded model and serves
// the service as MCP tools over stdio.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
