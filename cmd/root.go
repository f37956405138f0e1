package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "face-attendance",
	Short: "A face recognition attendance service",
	Long: `Face Attendance matches camera frames against a gallery of reference
photos and keeps an idempotent attendance ledger: one durable record per
person per calendar day, first sighting wins. Face embeddings come from an
external embedding server.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// quietCLILogger keeps one-shot commands free of log noise; only errors
// reach stderr, everything else goes through fmt.
func quietCLILogger() *slog.Logger {
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelError}))
}
