package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"invoicer/internal/core"
	"invoicer/internal/settings"
)

func newSettingsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or load invoice settings and templates",
	}
	cmd.AddCommand(newSettingsShowCmd(a))
	cmd.AddCommand(newSettingsLoadCmd(a))
	return cmd
}

func newSettingsShowCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the stored settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.Engine(cmd.Context())
			if err != nil {
				return err
			}
			s, err := engine.Settings(cmd.Context())
			if err != nil {
				return err
			}
			ts, err := engine.Templates(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), struct {
					Settings  core.Settings   `json:"settings"`
					Templates []core.Template `json:"templates"`
				}{s, ts})
			}
			fmt.Fprint(cmd.OutOrStdout(), renderSettings(s, ts))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newSettingsLoadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "load <file.yaml>",
		Short: "Replace settings and templates from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, err := settings.Load(args[0])
			if err != nil {
				return err
			}
			engine, err := a.Engine(cmd.Context())
			if err != nil {
				return err
			}
			if err := settings.Apply(cmd.Context(), engine, seed); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded settings and %d template(s) from %s\n", len(seed.Templates), args[0])
			return nil
		},
	}
}
