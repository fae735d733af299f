package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/formstack/internal/domain/asset"
	"github.com/GriffinCanCode/formstack/internal/infrastructure/logging"
)

var assetsCmd = &cobra.Command{
	Use:   "assets [dir]",
	Short: "List the form assets of a directory",
	Long: `List the form documents found under an asset directory, as the file
loader would catalog them. Defaults to ASSET_DIR.

With --check every document is also decoded, reporting the ones that would
fail to load.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAssets,
}

var (
	assetsJSON  bool
	assetsCheck bool
)

func init() {
	rootCmd.AddCommand(assetsCmd)

	assetsCmd.Flags().BoolVar(&assetsJSON, "json", false, "Print JSON instead of a table")
	assetsCmd.Flags().BoolVar(&assetsCheck, "check", false, "Decode every document")
}

type assetRow struct {
	asset.Entry
	Title string `json:"title,omitempty"`
	Error string `json:"error,omitempty"`
}

func runAssets(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	dir := cfg.Assets.Dir
	if len(args) == 1 {
		dir = args[0]
	}

	catalog, err := asset.NewCatalog(dir, nil, nil, logging.Nop().Logger)
	if err != nil {
		return err
	}
	if err := catalog.Scan(cmd.Context()); err != nil {
		return err
	}

	entries := catalog.List()
	rows := make([]assetRow, 0, len(entries))
	failed := 0
	loader := asset.NewFileLoader(catalog, nil)
	for _, e := range entries {
		row := assetRow{Entry: e}
		if assetsCheck {
			doc, err := loader.Load(cmd.Context(), e.Name)
			if err != nil {
				row.Error = err.Error()
				failed++
			} else {
				row.Title = doc.Title
			}
		}
		rows = append(rows, row)
	}

	out := cmd.OutOrStdout()
	if assetsJSON {
		data, err := sonic.ConfigStd.MarshalIndent(rows, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
	} else {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tFORMAT\tCOMPRESSION\tSIZE\tSTATUS")
		for _, r := range rows {
			status := "-"
			switch {
			case r.Error != "":
				status = r.Error
			case assetsCheck:
				status = "ok"
			}
			compression := string(r.Compression)
			if compression == "" {
				compression = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", r.Name, r.Format, compression, r.Size, status)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d assets failed to load", failed, len(rows))
	}
	return nil
}
