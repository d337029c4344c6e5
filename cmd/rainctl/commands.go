package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/i474232898/rainfield/internal/app"
	"github.com/i474232898/rainfield/internal/archive"
	"github.com/i474232898/rainfield/internal/config"
	"github.com/i474232898/rainfield/internal/rainfield"
)

func newRootCmd() *cobra.Command {
	var envFile string
	root := &cobra.Command{
		Use:          "rainctl",
		Short:        "Build interpolated rain fields and inspect the storm archive",
		SilenceUsage: true,
		// Same .env handling as the server: a missing default file is fine.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(envFile); err != nil && cmd.Flags().Changed("env-file") {
				return fmt.Errorf("load env file: %w", err)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading configuration")
	root.AddCommand(newFieldCmd(), newArchiveCmd())
	return root
}

func newFieldCmd() *cobra.Command {
	var (
		gridSize int
		density  int
		out      string
		summary  bool
	)

	cmd := &cobra.Command{
		Use:   "field",
		Short: "Sample the lattice once and print the interpolated report as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("grid-size") {
				gridSize = cfg.Field.GridSize
			}
			if !cmd.Flags().Changed("density") {
				density = cfg.Field.Density
			}

			// Logs go to stderr so stdout stays valid JSON.
			lg := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(cfg.LogLevel).With().Timestamp().Logger()
			comps, err := app.Build(cfg, lg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			report, err := comps.Service.GetInterpolatedField(ctx, gridSize, density)
			if err != nil {
				return err
			}

			if err := writeReport(cmd.OutOrStdout(), out, report); err != nil {
				return err
			}

			if summary {
				s := rainfield.Summarize(report.Data)
				fmt.Fprintf(cmd.ErrOrStderr(), "min=%.3f max=%.3f mean=%.3f wet_cells=%d/%d\n",
					s.Min, s.Max, s.Mean, s.WetCells, report.InterpolatedPoints)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&gridSize, "grid-size", 15, "lattice points per axis (>= 2)")
	cmd.Flags().IntVar(&density, "density", 50, "output cells per axis (>= 2)")
	cmd.Flags().StringVarP(&out, "out", "o", "-", "output file, - for stdout")
	cmd.Flags().BoolVar(&summary, "summary", false, "print a one-line summary to stderr")
	return cmd
}

func newArchiveCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Query the pre-computed storm archive",
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "", "archive directory (defaults to ARCHIVE_DIR)")

	openArchive := func() (*archive.Archive, error) {
		if dir != "" {
			return archive.New(dir), nil
		}
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		return archive.New(cfg.ArchiveDir), nil
	}

	latest := &cobra.Command{
		Use:   "latest",
		Short: "Show the most recent snapshot folder",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openArchive()
			if err != nil {
				return err
			}
			snap, err := a.Latest()
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), snap)
		},
	}

	var date, scope string
	images := &cobra.Command{
		Use:   "images",
		Short: "List archived maps for a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openArchive()
			if err != nil {
				return err
			}
			list, err := a.ListImages(date, scope)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), list)
		},
	}
	images.Flags().StringVar(&date, "date", "", "date fragment of the snapshot folder, e.g. 20251103")
	images.Flags().StringVar(&scope, "scope", "general", "general or a storm id")
	_ = images.MarkFlagRequired("date")

	cmd.AddCommand(latest, images)
	return cmd
}

// writeReport writes the report to path, or to stdout when path is empty or "-".
func writeReport(stdout io.Writer, path string, report rainfield.Report) (err error) {
	if path == "" || path == "-" {
		return writeJSON(stdout, report)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close output file: %w", cerr)
		}
	}()
	return writeJSON(f, report)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
