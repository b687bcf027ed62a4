// Package driving provides interfaces for primary/inbound adapters
// (CLI, TUI, watchers).
package driving
