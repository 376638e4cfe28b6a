// Package protocol pairs worker replies with the calls that caused them.
//
// The chat-service worker answers every request with exactly one line and
// answers strictly in the order it read them. The Registry keeps the calls
// awaiting a reply in issue order and settles each one exactly once: by a
// reply, by its timeout, by a write failure, or by FailAll when the worker
// exits.
//
// Example usage:
//
//	reg := protocol.NewRegistry(log, supervisor, protocol.RegistryConfig{})
//
//	// Feed decoded replies from the worker's stdout
//	reg.HandleResponse(resp)
//
//	// Issue a call and wait for its reply or timeout
//	raw, err := reg.Issue(ctx, codec.ListModelsParams{})
package protocol
