package version

import (
	"fmt"
	"runtime"
)

// Build metadata, set through -ldflags "-X outagewatch/internal/version.Version=...".
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Info renders the build metadata one field per line.
func Info() string {
	return fmt.Sprintf("outagewatch %s\ncommit: %s\nbuilt: %s\ngo: %s %s/%s\n",
		Version, Commit, BuildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
