package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mediclaim/claims-cli/internal/model"
	"github.com/mediclaim/claims-cli/internal/rulebook"
)

var policiesCmd = &cobra.Command{
	Use:   "policies",
	Short: "List the policies in the rulebook",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("policies"); err != nil {
			return err
		}

		rb, err := rulebook.Load()
		if err != nil {
			return err
		}

		verbose, _ := cmd.Flags().GetBool("verbose")
		formatPolicies(os.Stdout, rb, verbose)
		return nil
	},
}

func init() {
	policiesCmd.Flags().Bool("verbose", false, "also list each policy's sub-limit rules")
	rootCmd.AddCommand(policiesCmd)
}

// formatPolicies writes a tabular summary of the rulebook to out.
func formatPolicies(out io.Writer, rb *rulebook.Rulebook, verbose bool) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "POLICY\tNAME\tSUM_INSURED\tCO_PAY%\tSUB_LIMITS")
	_, _ = fmt.Fprintln(w, "------\t----\t-----------\t-------\t----------")

	for _, id := range rb.PolicyIDs() {
		policy, err := rb.Lookup(id)
		if err != nil {
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%.0f\t%.0f\t%d\n",
			policy.PolicyID,
			policy.PolicyName,
			policy.SumInsured,
			policy.CoPaymentPercentage,
			len(policy.SubLimits),
		)
	}
	_ = w.Flush()

	if !verbose {
		return
	}

	for _, id := range rb.PolicyIDs() {
		policy, err := rb.Lookup(id)
		if err != nil {
			continue
		}
		_, _ = fmt.Fprintf(out, "\n%s sub-limits:\n", policy.PolicyID)
		rw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, name := range policy.RuleNames() {
			rule := policy.SubLimits[name]
			_, _ = fmt.Fprintf(rw, "  %s\t%s\n", name, formatRule(rule))
		}
		_ = rw.Flush()
	}
}

// formatRule renders a sub-limit rule in one line.
func formatRule(r model.RuleSpec) string {
	unit := ""
	if r.Per != "" {
		unit = " per " + r.Per
	}
	switch r.Type {
	case model.RuleFixed:
		return fmt.Sprintf("fixed %.0f%s", r.Value, unit)
	case model.RulePercentSumInsured:
		return fmt.Sprintf("%.1f%% of sum insured%s", r.Value, unit)
	case model.RulePercentSurgeryCost:
		return fmt.Sprintf("%.1f%% of surgery cost%s", r.Value, unit)
	case model.RulePercentSurgeonFee:
		return fmt.Sprintf("%.1f%% of surgeon fee%s", r.Value, unit)
	case model.RuleFixedPackage:
		return fmt.Sprintf("package %.0f%s", r.Value, unit)
	default:
		return string(r.Type)
	}
}
