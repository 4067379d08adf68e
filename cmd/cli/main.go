package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	baseURL string
	timeout time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "openbook-cli",
		Short: "Openbook entry engine CLI",
		Long:  `A command line interface for the openbook entry validation and balance engine API.`,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the openbook API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(entryCmd(), balancesCmd(), ledgerCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func entryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entry",
		Short: "Entry operations",
	}

	var draftFile string

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a draft entry without persisting it",
		RunE: func(cmd *cobra.Command, args []string) error {
			draft, err := readDraft(draftFile)
			if err != nil {
				return err
			}
			return call(http.MethodPost, "/api/v1/entries/validate", draft, http.StatusOK)
		},
	}
	validateCmd.Flags().StringVarP(&draftFile, "file", "f", "-", "Draft JSON file, - for stdin")

	var saveFile string

	saveCmd := &cobra.Command{
		Use:   "save",
		Short: "Validate and persist a draft entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			draft, err := readDraft(saveFile)
			if err != nil {
				return err
			}
			return call(http.MethodPost, "/api/v1/entries/", draft, http.StatusOK, http.StatusCreated)
		},
	}
	saveCmd.Flags().StringVarP(&saveFile, "file", "f", "-", "Draft JSON file, - for stdin")

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an entry, dissolving its groups",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(http.MethodDelete, "/api/v1/entries/"+args[0], nil, http.StatusNoContent)
		},
	}

	var ledger string

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the entries of a ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(http.MethodGet, "/api/v1/entries/?ledger="+ledger, nil, http.StatusOK)
		},
	}
	listCmd.Flags().StringVar(&ledger, "ledger", "", "Ledger mnemonic")
	listCmd.MarkFlagRequired("ledger")

	var summaryLedger string

	summaryCmd := &cobra.Command{
		Use:   "summary",
		Short: "Per-currency balance summary of a ledger's entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(http.MethodGet, "/api/v1/entries/summary?ledger="+summaryLedger, nil, http.StatusOK)
		},
	}
	summaryCmd.Flags().StringVar(&summaryLedger, "ledger", "", "Ledger mnemonic")
	summaryCmd.MarkFlagRequired("ledger")

	cmd.AddCommand(validateCmd, saveCmd, deleteCmd, listCmd, summaryCmd)
	return cmd
}

func balancesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balances",
		Short: "Balance aggregate operations",
	}

	recomputeCmd := &cobra.Command{
		Use:   "recompute",
		Short: "Rebuild every aggregate from the entry table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(http.MethodPost, "/api/v1/balances/recompute", nil, http.StatusOK)
		},
	}

	cmd.AddCommand(recomputeCmd)
	return cmd
}

func ledgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	consistencyCmd := &cobra.Command{
		Use:   "consistency <mnemo>",
		Short: "Check a ledger's aggregates against its entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(http.MethodGet, "/api/v1/ledgers/"+args[0]+"/consistency", nil, http.StatusOK)
		},
	}

	cmd.AddCommand(consistencyCmd)
	return cmd
}

// readDraft reads a draft entry JSON document from a file, or stdin when
// path is "-".
func readDraft(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// call performs one API request and prints the response body. A status
// outside the accepted set is an error carrying the body.
func call(method, path string, body []byte, accepted ...int) error {
	client := &http.Client{Timeout: timeout}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequest(method, baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	for _, status := range accepted {
		if resp.StatusCode == status {
			printJSON(raw)
			return nil
		}
	}

	return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(raw))
}

// printJSON pretty-prints a JSON payload, falling back to raw output when
// the body is not JSON (e.g. empty 204 responses).
func printJSON(raw []byte) {
	if len(raw) == 0 {
		fmt.Println("ok")
		return
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		fmt.Println(string(raw))
		return
	}
	fmt.Println(buf.String())
}
