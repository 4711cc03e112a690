// Package cli implements the applyload command line.
package cli

import (
	"github.com/spf13/cobra"
)

var version = "0.1.0"

// NewRootCmd builds the applyload command tree. Without a subcommand the
// root runs a campaign, exactly like "applyload run".
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "applyload",
		Short:   "Synthetic load generator for the online loan application form",
		Version: version,
		Long: `applyload simulates many applicants walking the loan application form
against the form service for a fixed duration.

Sessions are launched one per ramp delay. Every session authenticates,
submits each form page, requests an offer decision and polls it until the
service decides; finished sessions are replaced until the time is up.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE:         runCampaign,
	}
	addRunFlags(root)

	root.AddCommand(newRunCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
