// Package utils exposes reusable helpers consumed by the transplant commands.
//
// It houses ConfigurationLoader and LoggerFactory abstractions that integrate
// Viper, environment variables, and zap logging for the CLI, together with the
// command context accessor and a flushing writer for report output.
package utils
