package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/mediclaim/claims-cli/internal/store"
)

var claimsCmd = &cobra.Command{
	Use:   "claims",
	Short: "Inspect persisted claim history",
	Long:  "Commands for listing and viewing adjudicated claims from the store.",
}

// -- claims list --

var claimsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List adjudicated claims",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("claims"); err != nil {
			return err
		}

		st, err := initStore()
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		policyID, _ := cmd.Flags().GetString("policy")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		claims, err := st.ListClaims(ctx, store.ClaimFilter{
			PolicyID: policyID,
			Limit:    limit,
			Offset:   offset,
		})
		if err != nil {
			return eris.Wrap(err, "claims list")
		}

		if len(claims) == 0 {
			fmt.Fprintln(os.Stderr, "No claims found.")
			return nil
		}

		formatClaimsList(os.Stdout, claims)
		return nil
	},
}

// -- claims get --

var claimsGetCmd = &cobra.Command{
	Use:   "get <claim-id>",
	Short: "Show full details of a claim",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("claims"); err != nil {
			return err
		}

		st, err := initStore()
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		claim, err := st.GetClaim(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "claims get")
		}

		return printJSON(claim)
	},
}

func init() {
	claimsListCmd.Flags().String("policy", "", "filter by policy id")
	claimsListCmd.Flags().Int("limit", 50, "max number of claims to display")
	claimsListCmd.Flags().Int("offset", 0, "number of claims to skip")

	claimsCmd.AddCommand(claimsListCmd)
	claimsCmd.AddCommand(claimsGetCmd)
	rootCmd.AddCommand(claimsCmd)
}

// formatClaimsList writes a tabular list of claims to out.
func formatClaimsList(out io.Writer, claims []store.ClaimRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tPOLICY\tHOSPITAL\tCLAIMED\tALLOWED\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t------\t--------\t-------\t-------\t-------")

	for _, c := range claims {
		hospital := c.Adjudicated.HospitalName
		if len(hospital) > 30 {
			hospital = hospital[:27] + "..."
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%.2f\t%s\n",
			truncateID(c.ID),
			c.PolicyID,
			hospital,
			c.Adjudicated.TotalClaimedAmount,
			c.Adjudicated.TotalAllowedAmount,
			c.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
