package version

import (
	"fmt"
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

var GitCommit string
var Version string

func SetDefaults() {
	build, infoOk := debug.ReadBuildInfo()

	if GitCommit == "" {
		GitCommit = ".dev"
		if infoOk {
			for _, setting := range build.Settings {
				if setting.Key == "vcs.revision" {
					GitCommit = setting.Value
					break
				}
			}
		}
	}

	if Version == "" {
		Version = "unknown"
		if infoOk && build.Main.Version != "" && build.Main.Version != "(devel)" {
			Version = build.Main.Version
		}
	}
}

// Tag is the short form reported as the Sentry release.
func Tag(program string) string {
	SetDefaults()
	return fmt.Sprintf("%s/%s (%s)", program, Version, GitCommit)
}

func Print(program string, usingLogger bool) {
	SetDefaults()

	if usingLogger {
		logrus.Infof("%s version: %s", program, Version)
		logrus.Info("Commit: " + GitCommit)
	} else {
		fmt.Printf("%s version: %s\n", program, Version)
		fmt.Println("Commit: " + GitCommit)
	}
}
