package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/embedding"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/match"
	"github.com/kozaktomas/face-attendance/internal/pipeline"
	"github.com/kozaktomas/face-attendance/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the attendance web server",
	Long: `Start the Face Attendance web server.
The server loads the reference gallery, serves the browser camera page and
exposes the frame processing and attendance API. Known identities seen on
camera are recorded once per day.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
	serveCmd.Flags().Bool("debug", false, "Enable debug logging")
}

// serveLogger builds the colorized slog handler for the daemon.
func serveLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: "15:04:05",
		}),
	)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if port := mustGetInt(cmd, "port"); port != 0 {
		cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Web.Host = host
	}

	logger := serveLogger(mustGetBool(cmd, "debug"))
	slog.SetDefault(logger)

	attendanceStore, galleryCache, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer attendanceStore.Close()
	logger.Info("ledger backend ready", "backend", cfg.Ledger.Backend)

	provider := embedding.NewClient(cfg.Embedding.URL, cfg.Embedding.Timeout)
	attendance := ledger.New(attendanceStore, cfg.Ledger.Location(), cfg.Ledger.Timeout, logger)
	matcher := match.New(cfg.Match.Metric, cfg.Match.Threshold)

	galleryStore := gallery.NewStore()
	loader := gallery.NewLoader(provider, galleryCache, cfg.Gallery.MaxImageSize, logger)

	logger.Info("loading gallery", "path", cfg.Gallery.Path)
	snapshot, err := loader.Load(context.Background(), cfg.Gallery.Path)
	if err != nil {
		return fmt.Errorf("loading gallery: %w", err)
	}
	galleryStore.Swap(snapshot)
	logger.Info("gallery loaded",
		"identities", len(snapshot.Identities()),
		"entries", snapshot.Len(),
		"warnings", len(snapshot.Warnings()),
	)

	processor := pipeline.New(provider, galleryStore, matcher, attendance, cfg.Gallery.MaxImageSize, logger)
	server := web.NewServer(cfg, processor, attendance, galleryStore, loader, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("error during shutdown", "error", err)
		}
	}()

	fmt.Printf("Face Attendance running on http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
