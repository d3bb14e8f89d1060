package main

import (
	"fmt"
	"os"

	"github.com/aretw0/procmeta/internal/export"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Snapshot the catalog to a directory or an S3 bucket",
	Long: `Reads every type with its states and operations straight from the configured
catalog and writes one JSON document. With --bucket (or export.bucket) the
document goes to S3, otherwise to --dir.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if cmd.Flags().Changed("dir") {
			cfg.Export.Dir, _ = cmd.Flags().GetString("dir")
		}
		if cmd.Flags().Changed("bucket") {
			cfg.Export.Bucket, _ = cmd.Flags().GetString("bucket")
		}

		catalog, closer, err := openCatalog(cfg.Server)
		if err != nil {
			return err
		}
		defer closer.Close()

		sink, err := newSink(ctx, cfg.Export)
		if err != nil {
			return err
		}
		location, err := export.New(sink, export.WithLogger(logger)).Export(ctx, catalog)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), location)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <snapshot.json>",
	Short: "Load an exported snapshot into the catalog",
	Long:  `Applies a snapshot in one transaction. Types are matched by code, states and operations by id.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		catalog, closer, err := openCatalog(cfg.Server)
		if err != nil {
			return err
		}
		defer closer.Close()

		snap, err := export.Import(cmd.Context(), catalog, f)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d types, %d states, %d operations\n",
			len(snap.Types), len(snap.States), len(snap.Operations))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	exportCmd.Flags().String("dir", "", "Target directory (default from config, exports)")
	exportCmd.Flags().String("bucket", "", "S3 bucket; overrides --dir")
}
