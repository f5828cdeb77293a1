package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the validation rules",
	Args:  cobra.NoArgs,
	RunE:  runRules,
}

var rulesJSON bool

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.Flags().BoolVar(&rulesJSON, "json", false, "Output as JSON")
}

func runRules(cmd *cobra.Command, _ []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), reqTimeout)
	defer cancel()

	defs, err := c.Catalog(ctx)
	if err != nil {
		return err
	}

	if rulesJSON {
		return outputJSON(cmd.OutOrStdout(), defs)
	}
	renderCatalog(cmd.OutOrStdout(), defs)
	return nil
}
