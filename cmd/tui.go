package cmd

import (
	"fmt"
	"os"
	"strings"

	"cryogon/rizumu-udio/tui"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/spf13/cobra"
)

type TuiParams struct {
	Socket string `short:"s" optional:"true" help:"IPC socket of a running daemon. Defaults to RIZUMU_SOCKET."`
	Log    string `optional:"true" help:"Write debug logs to this file." default:"debug.log"`
	Genres string `short:"g" optional:"true" help:"Comma separated genres for the left column."`
}

func TuiCmd() *cobra.Command {
	return boa.CmdT[TuiParams]{
		Use:         "tui",
		Short:       "Terminal client for a running daemon",
		ParamEnrich: paramEnricher(),
		RunFunc: func(params *TuiParams, cmd *cobra.Command, args []string) {
			socket := params.Socket
			if socket == "" {
				socket = loadConfig().SocketPath
			}
			var genres []string
			if params.Genres != "" {
				genres = strings.Split(params.Genres, ",")
			}
			if err := tui.Run(socket, params.Log, genres); err != nil {
				_, _ = fmt.Fprintf(os.Stderr, "tui: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}
