package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cryogon/rizumu-udio/httpd"
	"cryogon/rizumu-udio/ipc"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/spf13/cobra"
)

type ServeParams struct {
	Addr   string `short:"a" optional:"true" help:"HTTP listen address. Overrides RIZUMU_ADDR."`
	Socket string `short:"s" optional:"true" help:"IPC socket path. Overrides RIZUMU_SOCKET."`
	Origin string `optional:"true" help:"Value of Access-Control-Allow-Origin." default:"*"`
	NoIPC  bool   `help:"Do not open the IPC socket." default:"false"`
}

func ServeCmd() *cobra.Command {
	return boa.CmdT[ServeParams]{
		Use:         "serve",
		Short:       "Run the player daemon (HTTP API, relay and IPC socket)",
		ParamEnrich: paramEnricher(),
		RunFunc: func(params *ServeParams, cmd *cobra.Command, args []string) {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := RunServe(ctx, params); err != nil {
				_, _ = fmt.Fprintf(os.Stderr, "serve: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

func RunServe(ctx context.Context, params *ServeParams) error {
	log.Println("Starting Rizumu daemon...")

	cfg := loadConfig()
	if params.Addr != "" {
		cfg.ListenAddr = params.Addr
	}
	if params.Socket != "" {
		cfg.SocketPath = params.Socket
	}

	app, err := NewApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Store.ClearMissingFiles(ctx, fileExists); err != nil {
		log.Printf("[store] Checking downloaded files: %v", err)
	}

	srv := &httpd.Server{
		Player:      app.Player,
		Search:      app.Udio,
		Store:       app.Store,
		Downloader:  app.Downloader,
		AllowOrigin: params.Origin,
	}
	router := httpd.NewRouter(srv)
	defer srv.Close()

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 2)
	go func() {
		log.Printf("Server listening on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	if !params.NoIPC {
		h := ipc.NewIPCHandler(ipc.Options{
			SocketPath: cfg.SocketPath,
			Player:     app.Player,
			Search:     app.Udio,
			Store:      app.Store,
			Downloader: app.Downloader,
		})
		go func() {
			if err := h.Serve(ctx); err != nil {
				errs <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		log.Println("Shutting down...")
	case err := <-errs:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
