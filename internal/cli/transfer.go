package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"invoicer/internal/invoice"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		filters filterFlags
		format  string
		out     string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export invoices as JSON or CSV",
		Long:  `Writes the matching invoices to --out, or to invoices_<date>.<ext> in the current directory. Use --out - for stdout.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := filters.build()
			if err != nil {
				return err
			}
			engine, err := a.Engine(cmd.Context())
			if err != nil {
				return err
			}
			res, err := engine.Export(cmd.Context(), format, f)
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}

			if out == "-" {
				_, err := cmd.OutOrStdout().Write(res.Data)
				return err
			}
			path := out
			if path == "" {
				path = res.Filename
			}
			if err := os.WriteFile(path, res.Data, 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d invoice(s) to %s\n", res.Count, path)
			return nil
		},
	}
	filters.register(cmd)
	cmd.Flags().StringVar(&format, "format", invoice.FormatJSON, "Export format: json, csv or xlsx (written as csv)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file, - for stdout")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	var (
		format string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import invoices from a JSON or CSV file",
		Long:  "Invoices whose number already exists are skipped. The format follows the file extension unless --format is given.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.Engine(cmd.Context())
			if err != nil {
				return err
			}

			var res invoice.ImportResult
			if format == "" {
				res, err = engine.ImportFile(cmd.Context(), args[0])
			} else {
				var content []byte
				content, err = os.ReadFile(args[0])
				if err != nil {
					return fmt.Errorf("read import file: %w", err)
				}
				res, err = engine.Import(cmd.Context(), format, content)
			}
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderImport(res))
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "Input format: json or csv")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the result as JSON")
	return cmd
}
