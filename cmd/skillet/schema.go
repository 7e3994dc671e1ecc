package main

import (
	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillet/pkg/report"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema of the validation report",
	Long:  `Print the JSON Schema describing the output of skillet validate --json.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return report.WriteSchema(cmd.OutOrStdout())
	},
}
