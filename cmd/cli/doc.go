// Package cli constructs the git-transplant command-line interface, wiring the
// Cobra command hierarchy, configuration loader, and structured logging
// primitives around the move command.
package cli
