package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/google/renameio/v2"
	"github.com/spf13/cobra"

	"github.com/JaimeStill/preflight/internal/artifacts"
	"github.com/JaimeStill/preflight/internal/client"
	"github.com/JaimeStill/preflight/internal/rules"
	"github.com/JaimeStill/preflight/internal/sessions"
	"github.com/JaimeStill/preflight/pkg/formatting"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Upload an MDF and Artwork pair and run the validation rules",
	Long: `Upload both PDFs into a new session, submit them, and run the
validation rules. Without --rule every rule is re-run; with one or more
--rule flags only those rules are triggered, in the order given.

The command exits non-zero when any rule fails.`,
	Example: `  preflight validate --mdf mdf.pdf --artwork artwork.pdf
  preflight validate --mdf mdf.pdf --artwork artwork.pdf --rule barcode --report report.json`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

var (
	validateMDF     string
	validateArtwork string
	validateRules   []string
	validateReport  string
	validateJSON    bool
)

// errRulesFailed reports a completed validation with failures.
var errRulesFailed = errors.New("validation failed")

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVar(&validateMDF, "mdf", "", "path to the MDF PDF")
	validateCmd.Flags().StringVar(&validateArtwork, "artwork", "", "path to the Artwork PDF")
	validateCmd.Flags().StringSliceVar(&validateRules, "rule", nil, "rule id to run (repeatable, default all)")
	validateCmd.Flags().StringVar(&validateReport, "report", "", "write the validation report to this file")
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "Output as JSON")
	validateCmd.MarkFlagRequired("mdf")
	validateCmd.MarkFlagRequired("artwork")
}

func runValidate(cmd *cobra.Command, _ []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), reqTimeout)
	defer cancel()

	s, err := c.CreateSession(ctx)
	if err != nil {
		return err
	}
	defer c.DeleteSession(context.WithoutCancel(ctx), s.ID)

	out := cmd.OutOrStdout()
	if !validateJSON {
		fmt.Fprintln(out, mutedStyle.Render("session "+s.ID.String()))
	}

	uploads := []struct {
		slot artifacts.Slot
		path string
	}{
		{artifacts.SlotMDF, validateMDF},
		{artifacts.SlotArtwork, validateArtwork},
	}
	for _, u := range uploads {
		a, err := c.Upload(ctx, s.ID, u.slot, u.path)
		if err != nil {
			return fmt.Errorf("upload %s: %w", u.slot.Label(), err)
		}
		if !validateJSON {
			fmt.Fprintf(out, "%s %s %s uploaded (%s)\n",
				statusBadge(rules.StatusPassed), u.slot.Label(), a.Filename, formatting.FormatPercent(a.Progress))
		}
	}

	if _, err := c.Submit(ctx, s.ID); err != nil {
		return err
	}

	snapshot, err := execute(ctx, c, s)
	if err != nil {
		return err
	}

	if validateJSON {
		if err := outputJSON(out, snapshot); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(out)
		fmt.Fprintln(out, titleStyle.Render("Results"))
		renderRules(out, snapshot.Rules)
		renderSummary(out, snapshot.Summary)
	}

	if validateReport != "" && snapshot.Summary.ReportAvailable {
		if err := writeReport(ctx, c, s, validateReport); err != nil {
			return err
		}
		if !validateJSON {
			fmt.Fprintln(out, mutedStyle.Render("report written to "+validateReport))
		}
	}

	if snapshot.Summary.Failed > 0 {
		return fmt.Errorf("%w: %d of %d rules failed", errRulesFailed, snapshot.Summary.Failed, snapshot.Summary.Total)
	}
	return nil
}

func execute(ctx context.Context, c *client.Client, s sessions.Snapshot) (sessions.Snapshot, error) {
	if len(validateRules) == 0 {
		return c.ValidateAll(ctx, s.ID)
	}

	for _, id := range validateRules {
		if _, err := c.Validate(ctx, s.ID, rules.ID(id)); err != nil {
			return sessions.Snapshot{}, fmt.Errorf("rule %s: %w", id, err)
		}
	}

	return c.Session(ctx, s.ID)
}

func writeReport(ctx context.Context, c *client.Client, s sessions.Snapshot, path string) error {
	report, err := c.Report(ctx, s.ID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return renameio.WriteFile(path, append(data, '\n'), 0o644)
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
