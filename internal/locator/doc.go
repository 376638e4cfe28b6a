// Package locator finds the chat-service worker binary and builds its
// launch environment.
//
// The Locator interface resolves a Command:
//
//	loc := locator.New(log, options)
//	cmd, err := loc.Locate()
//
// Search order:
//  1. Options.WorkerPath, if set (and only it)
//  2. In development mode, <DistDir>/bin/chat-service
//  3. In development mode, "cargo run --bin chat-service --release" in ProjectDir
//  4. <ResourcesDir>/bin/chat-service, made executable if needed
//  5. chat-service on $PATH
//
// When nothing is found the error is a *errors.WorkerNotFoundError listing
// every searched location.
package locator
