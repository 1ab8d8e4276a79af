package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mediclaim/claims-cli/internal/adjudicate"
	"github.com/mediclaim/claims-cli/internal/reconcile"
	"github.com/mediclaim/claims-cli/internal/rulebook"
)

var adjudicateCmd = &cobra.Command{
	Use:   "adjudicate",
	Short: "Adjudicate a medical bill against a policy",
	Long: `Runs the full pipeline: extraction of the bill by redundant AI providers,
reconciliation into one canonical record, and staged adjudication against the
policy rulebook. A single .json bill input skips extraction and adjudicates a
pre-reconciled canonical record directly.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("adjudicate"); err != nil {
			return err
		}

		bills, _ := cmd.Flags().GetStringSlice("bill")
		policyID, _ := cmd.Flags().GetString("policy")
		noSave, _ := cmd.Flags().GetBool("no-save")

		rb, err := rulebook.Load()
		if err != nil {
			return err
		}
		policy, err := rb.Lookup(policyID)
		if err != nil {
			return err
		}

		record, doc, err := loadDocument(bills)
		if err != nil {
			return err
		}

		svc, err := initCatalog(ctx)
		if err != nil {
			return err
		}

		if doc != nil {
			providers, err := extractionProviders()
			if err != nil {
				return err
			}
			engine := reconcile.NewEngine(svc)
			canonical, err := engine.ExtractAndFuse(ctx, *doc, providers)
			if err != nil {
				return err
			}
			record = &canonical
		}

		provider := newAdjudicationProvider()
		orch, err := adjudicate.NewOrchestrator(adjudicate.Oracles{
			Normalizer: svc,
			Matcher:    provider,
			Applier:    provider,
			Sanity:     provider,
		},
			adjudicate.WithClaimTimeout(cfg.Oracles.ClaimTimeout()),
			adjudicate.WithCallTimeout(cfg.Oracles.CallTimeout()),
			adjudicate.WithFanOutLimit(cfg.Oracles.FanOutLimit),
		)
		if err != nil {
			return err
		}

		start := time.Now()
		claim, metrics, err := orch.Adjudicate(ctx, *record, policy)
		if err != nil {
			return err
		}
		zap.L().Info("claim adjudicated",
			zap.String("policy_id", policyID),
			zap.Float64("total_claimed", claim.TotalClaimedAmount),
			zap.Float64("total_allowed", claim.TotalAllowedAmount),
			zap.Int("items", metrics.ItemsProcessed),
			zap.Duration("elapsed", time.Since(start)),
		)

		if !noSave {
			st, err := initStore()
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
			if err := st.Migrate(ctx); err != nil {
				return err
			}
			saved, err := st.SaveClaim(ctx, *record, *claim)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Saved claim %s\n", saved.ID)
		}

		return printJSON(claim)
	},
}

func init() {
	adjudicateCmd.Flags().StringSlice("bill", nil, "bill page images (.jpg) or a single pre-extracted .json record")
	adjudicateCmd.Flags().String("policy", "", "policy id from the rulebook (e.g. MVP1)")
	adjudicateCmd.Flags().Bool("no-save", false, "do not persist the adjudicated claim")
	_ = adjudicateCmd.MarkFlagRequired("bill")
	_ = adjudicateCmd.MarkFlagRequired("policy")
	rootCmd.AddCommand(adjudicateCmd)
}
