package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"triage-assist/internal/core"
)

func (c *cli) newCheckCmd() *cobra.Command {
	var pretty bool
	cmd := &cobra.Command{
		Use:   "check [file]",
		Short: "Validate saved generator output and print the decoded response",
		Long: `Run raw generator output through JSON extraction and schema validation.

The output is read from the file argument or from stdin. On success the typed
triage response is printed; on failure the error kind and message are
reported and the command exits with status 1.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				raw []byte
				err error
			)
			if len(args) == 1 {
				raw, err = os.ReadFile(args[0])
			} else {
				raw, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("read generator output: %w", err)
			}

			resp, err := core.ParseModelOutput(string(raw))
			if err != nil {
				c.logger.Debug("generator output rejected", zap.String("kind", core.ErrorKind(err)), zap.Error(err))
				return fmt.Errorf("%s: %w", core.ErrorKind(err), err)
			}
			return writeResponse(cmd.OutOrStdout(), resp, pretty)
		},
	}
	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent the JSON output")
	return cmd
}
