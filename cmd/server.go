package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/branch-canvas/internal/api"
	"github.com/ziadkadry99/branch-canvas/internal/config"
	"github.com/ziadkadry99/branch-canvas/internal/events"
	"github.com/ziadkadry99/branch-canvas/internal/live"
	"github.com/ziadkadry99/branch-canvas/internal/llm"
	"github.com/ziadkadry99/branch-canvas/internal/render"
	"github.com/ziadkadry99/branch-canvas/internal/server"
	"github.com/ziadkadry99/branch-canvas/internal/workspace"
)

var (
	serverPort  int
	serverStyle string
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the canvas server",
	Long:  `Starts the branchcanvas server with the REST API, the live canvas websocket and the backend-compatible /chat endpoint.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = serverPort
		}

		database, store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		logger := log.Logger
		bus := events.NewBus(logger)
		defer bus.Close()

		mgr := workspace.NewManager(store, bus, workspace.Options{
			Settings:       cfg.ProviderSettings,
			ViewportWidth:  cfg.Viewport.Width,
			ViewportHeight: cfg.Viewport.Height,
			Logger:         logger,
		})

		srv := server.New(server.Config{
			Host:     cfg.Server.Host,
			Port:     cfg.Server.Port,
			AllowAll: cfg.Server.AllowAllOrigins,
		}, logger)
		registerAllRoutes(srv, mgr, cfg)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Info().
			Str("version", Version).
			Str("addr", srv.Addr()).
			Str("database", database.Path()).
			Str("chat_provider", cfg.Provider.DisplayName()).
			Msg("branchcanvas server starting")

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("running server: %w", err)
		}
		// Replies still in flight are written before the database closes.
		mgr.Wait()
		logger.Info().Msg("server stopped")
		return nil
	},
}

// registerAllRoutes wires the canvas API, the websocket and the chat
// endpoint onto the server router.
func registerAllRoutes(srv *server.Server, mgr *workspace.Manager, cfg *config.Config) {
	r := srv.Router()

	renderer := render.New(render.WithStyle(serverStyle))
	api.RegisterRoutes(r, mgr, renderer)
	api.RegisterChatRoutes(r, func() (llm.Provider, error) {
		return mgr.Provider(cfg.Provider)
	})
	live.RegisterRoutes(r, mgr, log.Logger)
}

func init() {
	serverCmd.Flags().IntVar(&serverPort, "port", 8080, "Port to listen on (overrides the config file)")
	serverCmd.Flags().StringVar(&serverStyle, "style", render.DefaultStyle, "Chroma style used for code highlighting")
	rootCmd.AddCommand(serverCmd)
}
