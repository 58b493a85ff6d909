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

	"retrieval-engine/internal/adapter/httpapi"
	"retrieval-engine/internal/infra/config"
)

var (
	serverURL   string
	apiToken    string
	workspaceID string
	topK        int
	mode        string
	rationale   bool
	configPath  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "searchctl",
		Short: "Query and inspect the retrieval engine",
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:9020", "server base URL")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", os.Getenv("API_TOKEN"), "bearer token")

	searchCmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Run a search against the server",
		Args:  cobra.ExactArgs(1),
		RunE:  runSearch,
	}
	searchCmd.Flags().StringVar(&workspaceID, "workspace", "", "workspace ID (required)")
	searchCmd.Flags().IntVar(&topK, "topk", 0, "maximum results")
	searchCmd.Flags().StringVar(&mode, "mode", "", "retrieval mode: knowledge, neural, or hybrid")
	searchCmd.Flags().BoolVar(&rationale, "rationale", false, "include the ranking rationale")
	_ = searchCmd.MarkFlagRequired("workspace")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a retrieval config file",
		RunE:  runValidate,
	}
	validateCmd.Flags().StringVar(&configPath, "config", "", "path to retrieval config YAML (required)")
	_ = validateCmd.MarkFlagRequired("config")

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect retrieval configuration",
	}
	configCmd.AddCommand(validateCmd)

	rootCmd.AddCommand(searchCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runSearch(cmd *cobra.Command, args []string) error {
	reqBody := httpapi.SearchRequest{
		WorkspaceID:      workspaceID,
		Query:            args[0],
		TopK:             topK,
		Mode:             mode,
		IncludeRationale: rationale,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost,
		serverURL+"/v1/search", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+apiToken)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err != nil {
		cmd.Println(string(body))
		return nil
	}
	cmd.Println(pretty.String())
	return nil
}

func runValidate(cmd *cobra.Command, _ []string) error {
	snap, err := config.LoadRetrievalConfig(configPath)
	if err != nil {
		return fmt.Errorf("invalid: %w", err)
	}
	cmd.Printf("ok: %d presets, fused top-k %d, rerank enabled %v\n",
		len(snap.Config.Presets), snap.Config.TopK.Fused, snap.Config.Rerank.Enabled)
	return nil
}
