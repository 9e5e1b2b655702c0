package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/smazurov/volcaprep/internal/sample"
)

// Exit codes returned by the volcaprep binary.
const (
	ExitOK          = 0
	ExitInvalid     = 1 // bad input path, uncreatable directory, usage errors
	ExitValidation  = 2 // batch exceeds a device limit
	ExitToolFailure = 3 // probe, transform or encode failure
	ExitInterrupted = 130
)

// NewRootCmd assembles the volcaprep command tree.
func NewRootCmd() *cobra.Command {
	opts := &Options{}
	root := &cobra.Command{
		Use:   "volcaprep",
		Short: "Prepare audio samples for the KORG volca sample",
		Long: `volcaprep converts recordings into volca sample compatible WAV files,
checks a batch against the device limits and encodes it into slot files
for transfer over the sync input.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	BindFlags(root, opts)

	root.AddCommand(CreateConvertCmd(opts))
	root.AddCommand(CreateUploadCmd(opts))
	root.AddCommand(CreateVersionCmd(opts))
	return root
}

// ExitCode maps a command error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if errors.Is(err, context.Canceled) {
		return ExitInterrupted
	}
	switch sample.Code(err) {
	case sample.CodeValidation:
		return ExitValidation
	case sample.CodeProbe, sample.CodeTransform, sample.CodeEncode:
		return ExitToolFailure
	default:
		return ExitInvalid
	}
}
