package cmd

import (
	"context"
	"fmt"
	"os"

	"cryogon/rizumu-udio/store"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
)

type TokenParams struct {
	Value string `pos:"true" required:"true" help:"API bearer token."`
}

func TokenCmd() *cobra.Command {
	return boa.CmdT[TokenParams]{
		Use:         "token",
		Short:       "Save the API token in the library so UDIO_API_TOKEN can stay unset",
		ParamEnrich: paramEnricher(),
		RunFunc: func(params *TokenParams, cmd *cobra.Command, args []string) {
			if err := saveToken(cmd.Context(), loadConfig().DBPath, params.Value); err != nil {
				_, _ = fmt.Fprintf(os.Stderr, "token: %v\n", err)
				os.Exit(1)
			}
			fmt.Println("Token saved.")
		},
	}.ToCobra()
}

func saveToken(ctx context.Context, dbPath, value string) error {
	st, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()
	return st.SaveToken(ctx, TokenProvider, &oauth2.Token{AccessToken: value, TokenType: "Bearer"})
}
