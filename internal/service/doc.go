// Package service implements the crane worker facade.
//
// A Service wires a subprocess.Supervisor to a protocol.Registry and keeps
// the model binding: the path of the model the current worker has loaded.
// Its operations (Start, Initialize, Chat, ListModels, Stop) are the
// library's public surface, re-exported from the root package.
package service
