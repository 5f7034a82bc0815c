package version

// These are set at build time with -ldflags "-X".
var (
	Version   = "UNKNOWN"
	GitCommit = "UNKNOWN"
)
