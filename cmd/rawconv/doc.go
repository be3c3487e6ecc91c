// Package main hosts the rawconv CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration, applies flag overrides, and
// wires the internal packages together: discovery feeds the batch runner, the
// preflight gate guards each batch, and completed reports are rendered as
// tables or JSON and recorded in the history database. Hot-folder mode reuses
// the same runner through internal/watch.
//
// Keep this package thin. Behaviour belongs in internal packages; commands
// here translate flags into configuration and render results.
package main
