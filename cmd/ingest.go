package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nitdede/AIPoweredClaimUnderwriter/internal/ingest"
)

var (
	ingestPolicyID     string
	ingestPolicyNumber string
	ingestCustomerID   string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <policy-file>",
	Short: "Ingest a policy document into the vector store",
	Long: `Reads a plain-text policy document, splits it into chunks, and stores the
chunks with policy holder metadata so claims against this policy can be
adjudicated.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		rt, err := buildRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		chunks, err := ingest.New(rt.store).IngestFile(ctx, args[0],
			ingestPolicyID, ingestPolicyNumber, ingestCustomerID)
		if err != nil {
			return err
		}
		if err := rt.persist(ctx); err != nil {
			return fmt.Errorf("persisting vector store: %w", err)
		}

		fmt.Printf("Ingested %d chunks for policy %s\n", chunks, ingestPolicyNumber)
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestPolicyID, "policy-id", "", "internal policy identifier")
	ingestCmd.Flags().StringVar(&ingestPolicyNumber, "policy-number", "", "policy number claims reference (required)")
	ingestCmd.Flags().StringVar(&ingestCustomerID, "customer-id", "", "policy holder identifier")
	ingestCmd.MarkFlagRequired("policy-number")
	rootCmd.AddCommand(ingestCmd)
}
