// Package settings provides build metadata, per-run options, and context
// helpers shared by the tubex commands.
package settings

// CliBinaryName is the canonical binary name for this tool.
const CliBinaryName = "tubex"

// VersionInformation is populated at build time via ldflags.
var VersionInformation = VersionInfo{
	Commit:       "unknown",
	BuildVersion: "v0.0.0-nightly",
	BuildTime:    "unknown",
}

// Mode identifies which half of tubex is running.
type Mode string

const (
	ModeBrowse  Mode = "browse"
	ModeServe   Mode = "serve"
	ModeOneShot Mode = "oneshot"
)

// VersionInfo holds metadata about the build.
type VersionInfo struct {
	Commit       string
	BuildVersion string
	BuildTime    string
}

// Run holds options for a single execution of a tubex command.
type Run struct {
	Mode        Mode
	MinLogLevel int8
	LogFile     string // empty logs to stderr
	GatewayURL  string
	NoColor     bool
	Interactive bool
}

// NewCliParams returns the defaults used by the CLI before flags are applied.
func NewCliParams() *Run {
	return &Run{
		Mode:        ModeBrowse,
		MinLogLevel: 0,
		Interactive: true,
	}
}

// LogsToTerminal reports whether log output would share the terminal with an
// interactive UI.
func (r *Run) LogsToTerminal() bool {
	return r.Interactive && r.LogFile == ""
}
