package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/embedding"
	"github.com/kozaktomas/face-attendance/internal/gallery"
)

var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Build and inspect the reference gallery",
	Long: `Load the reference gallery from GALLERY_PATH and print its contents.
Each image contributes one face embedding; the identity comes from the
filename (trailing _N suffixes group multiple photos of one person).`,
	RunE: runGallery,
}

func init() {
	rootCmd.AddCommand(galleryCmd)

	galleryCmd.Flags().Bool("warnings", true, "Print gallery load warnings")
}

func runGallery(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	files, err := gallery.ListImages(cfg.Gallery.Path)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Printf("No reference images in %s\n", cfg.Gallery.Path)
		return nil
	}

	provider := embedding.NewClient(cfg.Embedding.URL, cfg.Embedding.Timeout)
	store, galleryCache, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	loader := gallery.NewLoader(provider, galleryCache, cfg.Gallery.MaxImageSize, quietCLILogger())

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetDescription("Encoding gallery"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)
	loader.Progress = func() { _ = bar.Add(1) }

	snapshot, err := loader.Load(context.Background(), cfg.Gallery.Path)
	if err != nil {
		return fmt.Errorf("loading gallery: %w", err)
	}
	fmt.Println()

	rows := make([][]string, 0, len(snapshot.Identities()))
	for _, ic := range snapshot.Identities() {
		rows = append(rows, []string{ic.Name, fmt.Sprintf("%d", ic.Entries)})
	}
	fmt.Println(renderTable([]string{"Identity", "Photos"}, rows))
	fmt.Printf("%d identities, %d reference photos\n", len(snapshot.Identities()), snapshot.Len())

	if mustGetBool(cmd, "warnings") && len(snapshot.Warnings()) > 0 {
		fmt.Printf("\nWarnings:\n")
		for _, w := range snapshot.Warnings() {
			fmt.Printf("  %s: %s\n", w.Reason, w.File)
		}
	}
	return nil
}
