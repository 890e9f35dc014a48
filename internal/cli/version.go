package cli

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X .../internal/cli.Version=v1.2.3"
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display version information",
	Run:   runVersion,
}

func runVersion(cmd *cobra.Command, args []string) {
	fmt.Fprint(cmd.OutOrStdout(), versionString())
}

// versionString renders the version with the VCS revision and Go version
// recorded in the binary, when available.
func versionString() string {
	out := "review-relay version " + Version

	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" && len(setting.Value) >= 7 {
				out += " commit=" + setting.Value[:7]
			}
		}
		out += " go=" + info.GoVersion
	}

	return out + "\n"
}
