package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	processPolicyNumber string
	processPatientName  string
)

var processCmd = &cobra.Command{
	Use:   "process <invoice-file>",
	Short: "Process one claim from a plain-text invoice file",
	Long: `Runs the full claim pipeline on a single invoice: extraction, policy
adjudication, and persistence. Prints the resulting decision as JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		text, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading invoice file: %w", err)
		}

		rt, err := buildRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		result, err := rt.loop.Process(ctx, string(text), processPolicyNumber, processPatientName)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	processCmd.Flags().StringVar(&processPolicyNumber, "policy-number", "", "policy number to adjudicate against (required)")
	processCmd.Flags().StringVar(&processPatientName, "patient", "", "patient name on the policy")
	processCmd.MarkFlagRequired("policy-number")
	rootCmd.AddCommand(processCmd)
}
