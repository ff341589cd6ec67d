package ui

import (
	"os"

	"github.com/muesli/termenv"
)

// IsAgentMode reports whether output should stay plain for machine
// consumption (WEFT_AGENT_MODE=1). Agents parsing CLI output get raw
// markdown and no ANSI.
func IsAgentMode() bool {
	v := os.Getenv("WEFT_AGENT_MODE")
	return v == "1" || v == "true"
}

// ShouldUseColor decides whether to emit ANSI colors, honoring the
// informal standards: NO_COLOR wins over everything, CLICOLOR_FORCE
// forces color even without a TTY, CLICOLOR=0 disables.
func ShouldUseColor() bool {
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return false
	}
	if force := os.Getenv("CLICOLOR_FORCE"); force != "" && force != "0" {
		return true
	}
	if os.Getenv("CLICOLOR") == "0" {
		return false
	}
	if IsAgentMode() {
		return false
	}
	return termenv.NewOutput(os.Stdout).ColorProfile() != termenv.Ascii
}
