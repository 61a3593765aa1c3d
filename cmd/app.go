// Package cmd holds the rizumu subcommands and the wiring they share.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"cryogon/rizumu-udio/config"
	"cryogon/rizumu-udio/downloader"
	"cryogon/rizumu-udio/player"
	"cryogon/rizumu-udio/store"
	"cryogon/rizumu-udio/transport"
	"cryogon/rizumu-udio/udio"
	"cryogon/rizumu-udio/utils"

	"github.com/GiGurra/boa/pkg/boa"
)

// TokenProvider keys the stored API token.
const TokenProvider = "udio"

func paramEnricher() boa.ParamEnricher {
	return boa.ParamEnricherCombine(
		boa.ParamEnricherBool,
		boa.ParamEnricherName,
		boa.ParamEnricherShort,
	)
}

// App is the fully wired object graph used by the subcommands.
type App struct {
	Config     *config.Config
	Store      *store.Store
	Chain      *transport.Chain
	Relays     []*transport.RelayFetcher
	Udio       *udio.Client
	Player     *player.Controller
	Downloader *downloader.Service
}

// apiToken prefers the environment and falls back to the token saved with `rizumu token`.
func apiToken(ctx context.Context, cfg *config.Config, st *store.Store) string {
	if cfg.APIToken != "" {
		return cfg.APIToken
	}
	tok, err := st.Token(ctx, TokenProvider)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("[config] WARN: reading stored token: %v", err)
		}
		return ""
	}
	return tok.AccessToken
}

// proxies puts a self-hosted relay (another rizumu daemon) ahead of the public rotation.
func proxies(cfg *config.Config) []transport.Proxy {
	list := transport.DefaultProxies()
	if cfg.SelfRelayURL == "" {
		return list
	}
	self := transport.PrefixProxy("self", strings.TrimRight(cfg.SelfRelayURL, "/")+"/relay?url=", true,
		http.MethodGet, http.MethodPost)
	return append([]transport.Proxy{self}, list...)
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	st, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening library: %w", err)
	}

	mode, err := transport.ParseMode(cfg.CORSMode)
	if err != nil {
		st.Close()
		return nil, err
	}

	direct := transport.NewDirectFetcher(cfg.RequestTimeout, apiToken(ctx, cfg, st))
	plain := &transport.DirectFetcher{Client: utils.NewHTTPClient(cfg.RequestTimeout)}
	var fetcher, proxied transport.Fetcher = direct, plain
	var relays []*transport.RelayFetcher
	if cfg.UseRelay {
		// proxied calls get their own relay over the anonymous client
		authed, anon := transport.NewRelayFetcher(direct), transport.NewRelayFetcher(plain)
		authed.Start()
		anon.Start()
		fetcher, proxied = authed, anon
		relays = append(relays, authed, anon)
	}

	chain := transport.NewChain(transport.Options{
		Mode:       mode,
		MaxRetries: cfg.MaxRetries,
		Cooldown:   cfg.ProxyCooldown,
		Proxies:    proxies(cfg),
		Fetcher:    fetcher,
		Direct:     direct,
		Proxy:      proxied,
		Bare:       plain,
	})

	client := udio.NewClient(udio.Options{
		Transport:    chain,
		Endpoint:     cfg.SearchEndpoint(),
		PageSize:     cfg.PageSize,
		Placeholders: cfg.Placeholders,
	})

	// audio files are served from a CDN without origin checks
	audio := &transport.DirectFetcher{Client: utils.HTTPClient}
	ctrl := player.NewController(player.NewBeepFactory(audio), client, player.WithLoopInterval(cfg.LoopInterval))
	if !player.AudioAvailable {
		log.Println("[Player] WARN: built without audio output, playback will fail")
	}

	dl := downloader.NewService(audio, cfg.DownloadDir)
	dl.OnComplete = func(task downloader.Task) {
		if task.Track.Placeholder {
			return
		}
		ctx := context.Background()
		if err := st.SaveTrack(ctx, &task.Track); err != nil {
			log.Printf("[Downloader] Storing %s: %v", task.Track.ID, err)
			return
		}
		if err := st.UpdateTrackPath(ctx, task.Track.ID, task.FilePath); err != nil {
			log.Printf("[Downloader] Recording path of %s: %v", task.Track.ID, err)
		}
	}

	return &App{
		Config:     cfg,
		Store:      st,
		Chain:      chain,
		Relays:     relays,
		Udio:       client,
		Player:     ctrl,
		Downloader: dl,
	}, nil
}

// Close stops playback and background workers, then closes the library.
func (a *App) Close() {
	a.Player.Stop()
	a.Downloader.Close()
	for _, r := range a.Relays {
		r.Close()
	}
	if err := a.Store.Close(); err != nil {
		log.Printf("[store] Close: %v", err)
	}
}

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}
