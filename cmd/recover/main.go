package main

// Recover a structured compliance record from a saved model response:
//   go run ./cmd/recover response.txt
//   cat body.json | go run ./cmd/recover --unwrap

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"compliance-backend/internal/recovery"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	var unwrap bool

	rootCmd := &cobra.Command{
		Use:   "recover [file]",
		Short: "Recover a compliance record from model output",
		Long: `Reads a model response from a file, or stdin when no file is given,
and prints the recovered compliance record as JSON.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(in, args)
			if err != nil {
				return err
			}
			if unwrap {
				text = recovery.Unwrap(text)
			}
			return printJSON(out, recovery.Recover(text))
		},
	}
	rootCmd.Flags().BoolVarP(&unwrap, "unwrap", "u", false, "Unwrap a gateway response envelope first")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "repair [file]",
		Short: "Print the repaired object text and the rule that produced it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(in, args)
			if err != nil {
				return err
			}
			repaired, rule := recovery.RepairRule(strings.TrimSpace(text))
			return printJSON(out, map[string]any{
				"rule":  rule,
				"valid": recovery.Valid(repaired),
				"text":  repaired,
			})
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(out, "recover %s (%s, %s)\n", version, commit, buildDate)
		},
	})

	return rootCmd
}

func readInput(in io.Reader, args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("read %s: %w", args[0], err)
		}
		return string(raw), nil
	}
	raw, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(raw), nil
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
