package cli

import (
	"context"
	"runtime/debug"
	"strings"
)

const (
	developmentVersionConstant = "dev"
	buildInfoDevelVersion      = "(devel)"
)

// resolveApplicationVersion reports the module version recorded at build time.
func resolveApplicationVersion(context.Context) string {
	buildInformation, available := debug.ReadBuildInfo()
	if !available {
		return developmentVersionConstant
	}
	version := strings.TrimSpace(buildInformation.Main.Version)
	if len(version) == 0 || version == buildInfoDevelVersion {
		return developmentVersionConstant
	}
	return version
}
