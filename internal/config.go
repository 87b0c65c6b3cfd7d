package internal

import "strconv"

// Output modes baked in at link time. They are read once at startup; the
// CLI flags layered on top of them live in the cli package.
var (
	quietMode   bool
	debugMode   bool
	verboseMode bool
)

// Parses the linker flags into usable runtime variables.
//
// The rawQuiet, rawDebug, and rawVerbose variables should be set via ldflags
// during the build process. If not set, they default to "false".
func init() {
	quietMode, _ = strconv.ParseBool(rawQuiet)
	debugMode, _ = strconv.ParseBool(rawDebug)
	verboseMode, _ = strconv.ParseBool(rawVerbose)
}

// Returns true if quiet mode was enabled at build time.
func IsQuiet() bool {
	return quietMode
}

// Returns true if debug mode was enabled at build time.
func IsDebug() bool {
	return debugMode
}

// Returns true if verbose logging was enabled at build time.
func IsVerbose() bool {
	return verboseMode
}
