// Package codec implements the line-delimited JSON framing spoken with the
// chat-service worker.
//
// Each request is one UTF-8 line holding {"method", "params"} and each reply
// is one line holding {"result"} or {"error"}. There are no length prefixes:
// a message ends at its newline.
//
// The Decoder owns the line buffer for worker output. Chunks read from the
// worker's stdout are fed in as they arrive and complete lines come out:
//
//	dec := codec.NewDecoder(0)
//	lines, err := dec.Feed(chunk)
//	for _, line := range lines {
//	    resp, err := codec.Parse(line)
//	    // ...
//	}
//
// Outgoing calls are one of a closed set of typed variants (InitializeParams,
// ChatRequest, ListModelsParams). Validate checks a variant against its JSON
// schema before it is framed with Encode.
package codec
