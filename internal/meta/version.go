package meta

import (
	"fmt"
	"runtime"
)

// Name is reported to clients as serverInfo.name.
const Name = "humlsp"

// Info describes the build of a humlsp binary. Most of it is filled in at
// build time by the Go linker, see the vars below.
type Info struct {
	Version   string
	Build     string
	Branch    string
	BuildTime string
	Platform  string
	GoVersion string
}

// These will be filled in using the linker -X flag
var (
	// Version as an arbitrary string
	Version = "dev"

	// Build is the Git sha from when we are building
	Build string

	// Branch is the Git branch that we are building from
	Branch string

	// BuildTimeUTC is the build time in UTC (year/month/day hour:min:sec)
	BuildTimeUTC string

	platform = fmt.Sprintf("%s %s", runtime.GOOS, runtime.GOARCH)
)

// GetInfo returns an Info struct populated with the build information.
func GetInfo() Info {
	return Info{
		GoVersion: runtime.Version(),
		Version:   Version,
		Build:     Build,
		Branch:    Branch,
		BuildTime: BuildTimeUTC,
		Platform:  platform,
	}
}

func (i Info) String() string {
	s := fmt.Sprintf("%s %s (%s, %s)", Name, i.Version, i.Platform, i.GoVersion)
	if i.Build != "" {
		s += fmt.Sprintf(" build %s", i.Build)
		if i.Branch != "" {
			s += fmt.Sprintf(" on %s", i.Branch)
		}
	}
	if i.BuildTime != "" {
		s += fmt.Sprintf(", built %s", i.BuildTime)
	}
	return s
}
