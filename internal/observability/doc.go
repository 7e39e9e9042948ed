// Package observability builds the structured zap logger shared by the
// server and the CLI.
package observability
