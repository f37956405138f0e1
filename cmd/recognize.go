package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/embedding"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/match"
	"github.com/kozaktomas/face-attendance/internal/pipeline"
	"github.com/kozaktomas/face-attendance/internal/store"
	"github.com/kozaktomas/face-attendance/internal/store/memory"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize [image-file]",
	Short: "Recognize faces in a single image",
	Long: `Recognize faces in an image file against the reference gallery.
By default this is a dry run; pass --record to write attendance for the
recognized identities to the configured ledger backend.`,
	Args: cobra.ExactArgs(1),
	RunE: runRecognize,
}

func init() {
	rootCmd.AddCommand(recognizeCmd)

	recognizeCmd.Flags().Bool("record", false, "Record attendance for recognized identities")
}

func runRecognize(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	record := mustGetBool(cmd, "record")

	frame, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}

	// A dry run keeps the durable ledger untouched.
	var attendanceStore store.Store = memory.New()
	var galleryCache gallery.Cache
	if record {
		attendanceStore, galleryCache, err = openStore(cfg)
		if err != nil {
			return err
		}
	}
	defer attendanceStore.Close()

	logger := quietCLILogger()
	provider := embedding.NewClient(cfg.Embedding.URL, cfg.Embedding.Timeout)
	loader := gallery.NewLoader(provider, galleryCache, cfg.Gallery.MaxImageSize, logger)

	snapshot, err := loader.Load(context.Background(), cfg.Gallery.Path)
	if err != nil {
		return fmt.Errorf("loading gallery: %w", err)
	}
	galleryStore := gallery.NewStore()
	galleryStore.Swap(snapshot)

	attendance := ledger.New(attendanceStore, cfg.Ledger.Location(), cfg.Ledger.Timeout, logger)
	matcher := match.New(cfg.Match.Metric, cfg.Match.Threshold)
	processor := pipeline.New(provider, galleryStore, matcher, attendance, cfg.Gallery.MaxImageSize, logger)

	detections, err := processor.Process(context.Background(), frame, time.Now())
	if err != nil {
		return fmt.Errorf("processing image: %w", err)
	}

	if len(detections) == 0 {
		fmt.Println("No faces detected")
		return nil
	}

	rows := make([][]string, 0, len(detections))
	for _, d := range detections {
		distance := fmt.Sprintf("%.3f", d.Distance)
		status := "-"
		if d.Known && record {
			status = string(d.Attendance)
			if d.AttendanceError != "" {
				status = "error: " + d.AttendanceError
			}
		}
		rows = append(rows, []string{d.Name, distance, status})
	}
	fmt.Println(renderTable([]string{"Name", "Distance", "Attendance"}, rows))
	return nil
}
