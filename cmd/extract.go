package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/mediclaim/claims-cli/internal/reconcile"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract a canonical record from bill images",
	Long: `Runs extraction and reconciliation only: every configured provider reads
the bill pages independently and the readings are fused field-by-field into one
canonical record, printed as JSON. Feed that record back to adjudicate --bill
record.json to adjudicate it without re-reading the images.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("extract"); err != nil {
			return err
		}

		bills, _ := cmd.Flags().GetStringSlice("bill")
		_, doc, err := loadDocument(bills)
		if err != nil {
			return err
		}
		if doc == nil {
			return eris.New("extract: input is already a canonical record")
		}

		svc, err := initCatalog(ctx)
		if err != nil {
			return err
		}
		providers, err := extractionProviders()
		if err != nil {
			return err
		}

		engine := reconcile.NewEngine(svc)
		canonical, err := engine.ExtractAndFuse(ctx, *doc, providers)
		if err != nil {
			return err
		}

		return printJSON(canonical)
	},
}

func init() {
	extractCmd.Flags().StringSlice("bill", nil, "bill page images (.jpg/.jpeg)")
	_ = extractCmd.MarkFlagRequired("bill")
	rootCmd.AddCommand(extractCmd)
}
