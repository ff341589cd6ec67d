package main

import (
	"encoding/json"
	"fmt"
	"os"
)

// FatalError writes an error message to stderr and exits with code 1.
// Use this for fatal errors that prevent the command from completing.
func FatalError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// FatalErrorWithHint writes an error message with an actionable hint to
// stderr and exits.
func FatalErrorWithHint(message, hint string) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", message)
	fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
	os.Exit(1)
}

// FatalErrorRespectJSON emits the error as a JSON object on stdout when
// --json is set, plain stderr text otherwise, then exits 1.
func FatalErrorRespectJSON(format string, args ...interface{}) {
	if jsonOutput {
		msg := fmt.Sprintf(format, args...)
		_ = json.NewEncoder(os.Stdout).Encode(map[string]string{"error": msg})
		os.Exit(1)
	}
	FatalError(format, args...)
}

// WarnError writes a warning to stderr and returns. For optional
// operations that enhance a command but aren't required for it.
func WarnError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Warning: "+format+"\n", args...)
}

// printJSON encodes v to stdout, indented for humans to pipe through jq.
func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		FatalError("encode JSON: %v", err)
	}
}
