package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"triage-assist/internal/config"
	"triage-assist/internal/core"
	"triage-assist/internal/llm"
)

func (c *cli) newEvalCmd() *cobra.Command {
	var (
		mode     string
		file     string
		protocol string
		pretty   bool
	)
	cmd := &cobra.Command{
		Use:   "eval [report text...]",
		Short: "Evaluate a report and print the triage response as JSON",
		Long: `Evaluate a report and print the triage response as JSON.

The report is taken from the arguments, from --file, or from stdin.
Remote mode uses the provider configured through the environment
(TRIAGE_LLM_PROVIDER, OPENAI_API_KEY, AZURE_OPENAI_*, GEMINI_*).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readReport(cmd.InOrStdin(), file, args)
			if err != nil {
				return err
			}
			m, err := core.ParseMode(mode)
			if err != nil {
				return err
			}

			var p *core.Protocol
			if protocol != "" {
				if p, err = core.LoadProtocolFile(protocol); err != nil {
					return err
				}
			}
			engine, err := core.NewEngine(p)
			if err != nil {
				return err
			}

			var (
				gen     llm.Generator
				timeout time.Duration
			)
			if m == core.ModeRemote {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				gen, err = llm.NewGenerator(cmd.Context(), cfg.LLM)
				if err != nil {
					return err
				}
				timeout = cfg.LLM.Timeout
			}

			svc := core.NewTriageService(engine, gen, timeout, c.logger)
			outcome, err := svc.Evaluate(cmd.Context(), text, m)
			if err != nil {
				return fmt.Errorf("%s: %w", core.ErrorKind(err), err)
			}
			return writeResponse(cmd.OutOrStdout(), outcome.Response, pretty)
		},
	}
	cmd.Flags().StringVarP(&mode, "mode", "m", "local", "evaluation mode: local or remote")
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the report from a file")
	cmd.Flags().StringVar(&protocol, "protocol", "", "protocol YAML to use instead of the built-in one")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent the JSON output")
	return cmd
}

func readReport(stdin io.Reader, file string, args []string) (string, error) {
	switch {
	case len(args) > 0 && file != "":
		return "", fmt.Errorf("give the report either as arguments or with --file, not both")
	case len(args) > 0:
		return strings.Join(args, " "), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read report: %w", err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read report from stdin: %w", err)
	}
	return string(data), nil
}

func writeResponse(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
