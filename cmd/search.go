package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"cryogon/rizumu-udio/models"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

type SearchParams struct {
	Term     string `pos:"true" optional:"true" help:"Free-text search term."`
	Tags     string `short:"t" optional:"true" help:"Comma separated tags, e.g. jazz,lofi."`
	Sort     string `optional:"true" help:"newest, trending, likes or plays."`
	MaxAge   int    `help:"Only tracks published within this many hours." default:"0"`
	Page     int    `short:"p" help:"Zero-based result page." default:"0"`
	PageSize int    `short:"n" help:"Results per page. 0 uses RIZUMU_PAGE_SIZE." default:"0"`
	JSON     bool   `short:"j" help:"Print the raw result as JSON." default:"false"`
}

func (p *SearchParams) query() models.Query {
	q := models.Query{
		Term:          p.Term,
		Sort:          p.Sort,
		MaxAgeInHours: p.MaxAge,
		Page:          p.Page,
		PageSize:      p.PageSize,
	}
	if p.Tags != "" {
		q.Tags = strings.Split(p.Tags, ",")
	}
	return q
}

func SearchCmd() *cobra.Command {
	return boa.CmdT[SearchParams]{
		Use:         "search",
		Short:       "Search the catalog and print the matching tracks",
		ParamEnrich: paramEnricher(),
		RunFunc: func(params *SearchParams, cmd *cobra.Command, args []string) {
			if err := RunSearch(cmd.Context(), params); err != nil {
				_, _ = fmt.Fprintf(os.Stderr, "search: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

func RunSearch(ctx context.Context, params *SearchParams) error {
	app, err := NewApp(ctx, loadConfig())
	if err != nil {
		return err
	}
	defer app.Close()

	res, err := app.Udio.Search(ctx, params.query())
	if err != nil {
		return err
	}
	if !res.Placeholder {
		if _, err := app.Store.SaveTracks(ctx, res.Tracks); err != nil {
			fmt.Fprintf(os.Stderr, "warning: saving results: %v\n", err)
		}
	}

	if params.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	renderTracks(res)
	return nil
}

func renderTracks(res *models.SearchResult) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"#", "ID", "Title", "Artist", "Length", "Tags", "Likes", "Published"})
	for i, tr := range res.Tracks {
		published := ""
		if !tr.PublishedAt.IsZero() {
			published = tr.PublishedAt.Local().Format(time.DateOnly)
		}
		t.AppendRow(table.Row{
			i + 1,
			tr.ID,
			tr.Title,
			tr.Artist,
			tr.Duration.Round(time.Second).String(),
			strings.Join(tr.Tags, ", "),
			tr.Likes,
			published,
		})
	}
	t.Render()

	if res.Placeholder {
		fmt.Println("\nThe catalog could not be reached; these are offline demo tracks.")
	}
}
