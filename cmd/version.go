package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smazurov/volcaprep/internal/report"
	"github.com/smazurov/volcaprep/internal/version"
)

// CreateVersionCmd creates the version command.
func CreateVersionCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := report.ParseFormat(opts.ReportFormat)
			if err != nil {
				return err
			}
			info := version.Get()
			if format == report.FormatText {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), info.String())
				return err
			}
			return report.Write(cmd.OutOrStdout(), format, info)
		},
	}
}
