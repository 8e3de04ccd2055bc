package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-chat-auth/internal/bootstrap"
	"github.com/jrsteele09/go-chat-auth/internal/config"
	"github.com/jrsteele09/go-chat-auth/server"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const configFileVar = "CONFIG_FILE"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "chatauth",
		Short:         "Chat authentication service",
		Long:          "Signs chat users in against the Identity Toolkit and keeps their sessions.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), configPath)
		},
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.GetEnv(configFileVar, ""), "YAML config file overlaying the environment")

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), configPath)
		},
	})
	cmd.AddCommand(loginCmd(&configPath), signupCmd(&configPath), logoutCmd(&configPath), whoamiCmd(&configPath))
	return cmd
}

// loadConfig reads the optional YAML overlay and configures logging.
func loadConfig(path string) (config.Config, error) {
	c := config.New()
	if path != "" {
		var err error
		if c, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	setupLogging(c)
	return c, nil
}

func serve(ctx context.Context, configPath string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	displayAppname(c.GetAppName())

	services, err := bootstrap.New(ctx, c)
	if err != nil {
		return err
	}
	defer func() {
		if err := services.Close(); err != nil {
			log.Err(err).Msg("Failed to close storage")
		}
	}()

	handler, err := server.New(c, services.Registry,
		server.WithVerifier(services.Verifier),
		server.WithMetricsHandler(services.Metrics.Handler()),
	)
	if err != nil {
		return err
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	serveErr := make(chan error, 1)
	go func() { serveErr <- listenAndServe(httpServer) }()

	select {
	case err := <-serveErr:
		return err
	case <-waitForStopSignal():
	}
	returnError = shutdown(httpServer)
	log.Info().Msg("Server stopped")
	return returnError
}

func listenAndServe(server *http.Server) error {
	log.Info().Msgf("Server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
