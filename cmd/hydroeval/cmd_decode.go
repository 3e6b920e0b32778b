package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"hydroeval/internal/artifact"
	"hydroeval/internal/report"
)

func newDecodeCmd() *cobra.Command {
	var indent bool
	cmd := &cobra.Command{
		Use:   "decode [file|-]",
		Short: "Print the JSON payload of a compressed dataset artifact",
		Long: `Decode reads a compressed dataset artifact, either the raw string or a
generated dataset_compressed.js module, and prints the JSON payload it
encodes. With no argument or "-" the input is read from stdin.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			payload, err := decodeArtifact(in)
			if err != nil {
				return err
			}
			if indent {
				var b bytes.Buffer
				if err := json.Indent(&b, payload, "", "  "); err != nil {
					return fmt.Errorf("indent payload: %w", err)
				}
				payload = b.Bytes()
			}
			out := cmd.OutOrStdout()
			if _, err := out.Write(payload); err != nil {
				return err
			}
			_, err = fmt.Fprintln(out)
			return err
		},
	}
	cmd.Flags().BoolVar(&indent, "indent", false, "Pretty-print the JSON payload")
	return cmd
}

func readInput(cmd *cobra.Command, args []string) (string, error) {
	var (
		data []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return "", fmt.Errorf("read artifact: %w", err)
	}
	return string(data), nil
}

// decodeArtifact accepts either a raw artifact or dataset module source.
func decodeArtifact(in string) ([]byte, error) {
	in = strings.TrimSpace(in)
	if strings.HasPrefix(in, "export ") {
		a, err := report.ParseDatasetModule(in)
		if err != nil {
			return nil, err
		}
		in = a
	}
	return artifact.DecodeJSON(in)
}
