package cmd

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/store"
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Inspect and export attendance records",
}

var attendanceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List attendance records for a day",
	RunE:  runAttendanceList,
}

var attendanceExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a day's attendance as CSV",
	RunE:  runAttendanceExport,
}

func init() {
	rootCmd.AddCommand(attendanceCmd)
	attendanceCmd.AddCommand(attendanceListCmd)
	attendanceCmd.AddCommand(attendanceExportCmd)

	attendanceListCmd.Flags().String("date", "", "Day to list (YYYY-MM-DD, defaults to today)")
	attendanceExportCmd.Flags().String("date", "", "Day to export (YYYY-MM-DD, defaults to today)")
	attendanceExportCmd.Flags().String("output", "", "Output file (defaults to stdout)")
}

// resolveDay validates the --date flag, defaulting to today in the ledger
// time zone.
func resolveDay(cmd *cobra.Command, cfg *config.Config) (string, error) {
	date := mustGetString(cmd, "date")
	if date == "" {
		return time.Now().In(cfg.Ledger.Location()).Format(store.DayFormat), nil
	}
	if _, err := time.Parse(store.DayFormat, date); err != nil {
		return "", fmt.Errorf("invalid --date %q, expected YYYY-MM-DD", date)
	}
	return date, nil
}

func dayRecords(cmd *cobra.Command) (*config.Config, string, []store.Record, error) {
	cfg := config.Load()

	day, err := resolveDay(cmd, cfg)
	if err != nil {
		return nil, "", nil, err
	}

	attendanceStore, _, err := openStore(cfg)
	if err != nil {
		return nil, "", nil, err
	}
	defer attendanceStore.Close()

	attendance := ledger.New(attendanceStore, cfg.Ledger.Location(), cfg.Ledger.Timeout, quietCLILogger())
	records, err := attendance.List(context.Background(), day)
	if err != nil {
		return nil, "", nil, fmt.Errorf("listing attendance: %w", err)
	}
	return cfg, day, records, nil
}

func runAttendanceList(cmd *cobra.Command, args []string) error {
	cfg, day, records, err := dayRecords(cmd)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Printf("No attendance records for %s\n", day)
		return nil
	}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		first := rec.FirstSeen.In(cfg.Ledger.Location())
		rows = append(rows, []string{rec.Identity, first.Format("15:04:05")})
	}
	fmt.Println(renderTable([]string{"Name", "First seen"}, rows))
	fmt.Printf("%d present on %s\n", len(records), day)
	return nil
}

func runAttendanceExport(cmd *cobra.Command, args []string) error {
	cfg, _, records, err := dayRecords(cmd)
	if err != nil {
		return err
	}

	out := os.Stdout
	if output := mustGetString(cmd, "output"); output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	cw := csv.NewWriter(out)
	if err := cw.Write([]string{"Name", "Date", "Time"}); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	for _, rec := range records {
		first := rec.FirstSeen.In(cfg.Ledger.Location())
		if err := cw.Write([]string{rec.Identity, rec.Day, first.Format("15:04:05")}); err != nil {
			return fmt.Errorf("writing csv: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
