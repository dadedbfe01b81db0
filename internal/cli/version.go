package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/harbor-io/harbor/internal/buildinfo"
)

var versionCmd = &cobra.Command{
	Use:     "version",
	Aliases: []string{"v"},
	Short:   "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s %s (%s)\n",
			styleBrand.Render("Harbor"),
			styleVersion.Render(buildinfo.Version),
			buildinfo.Codename)
		fmt.Println(field("Commit", buildinfo.CommitHash))
		fmt.Println(field("Built", buildinfo.BuildDate))
		fmt.Println(field("OS/Arch", runtime.GOOS+"/"+runtime.GOARCH))
		fmt.Println(field("Go", runtime.Version()))
	},
}
