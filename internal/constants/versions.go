package constants

// Version information (injected at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// ServiceName identifies this process in traces and logs.
const ServiceName = "camgate"

// GetFullVersion returns version, commit and build time in one line.
func GetFullVersion() string {
	return Version + " (" + GitCommit + ") built at " + BuildTime
}
