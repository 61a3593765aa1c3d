package main

import (
	"runtime/debug"

	"cryogon/rizumu-udio/cmd"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/spf13/cobra"
)

func main() {
	boa.CmdT[boa.NoParams]{
		Use:     "rizumu",
		Short:   "Search, play and loop tracks from the Udio catalog",
		Version: appVersion(),
		SubCmds: []*cobra.Command{
			cmd.ServeCmd(),
			cmd.SearchCmd(),
			cmd.PlayCmd(),
			cmd.TuiCmd(),
			cmd.TokenCmd(),
		},
	}.Run()
}

func appVersion() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok || bi.Main.Version == "" {
		return "dev"
	}
	return bi.Main.Version
}
