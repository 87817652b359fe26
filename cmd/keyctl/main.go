// Package main はCLIツールのエントリポイント。
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

const version = "1.1.0"

// passwordHeader はパスワード保護の鍵を取り出す際に使うヘッダー。
const passwordHeader = "X-Key-Password"

var (
	apiURL  string
	output  string
	timeout time.Duration
)

// HTTPクライアント
var httpClient *http.Client

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "keyctl",
		Short:         "Key Protection Service CLI",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if apiURL == "" {
				apiURL = os.Getenv("KEYCTL_API_URL")
			}
			httpClient = &http.Client{Timeout: timeout}
		},
	}

	// グローバルフラグ
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "API endpoint URL (or set KEYCTL_API_URL)")
	rootCmd.PersistentFlags().StringVar(&output, "output", "text", "Output format: text, json")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")

	// サブコマンド登録
	rootCmd.AddCommand(createCmd())
	rootCmd.AddCommand(getCmd())
	rootCmd.AddCommand(rotateCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(disableCmd())
	rootCmd.AddCommand(deviceCmd())
	rootCmd.AddCommand(protectionCmd())
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(versionCmd())
	return rootCmd
}

// versionCmd はバージョン情報を表示する。
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "keyctl version %s\n", version)
		},
	}
}

// call はAPIを呼び出し、期待するステータスでなければエラーレスポンスを返す。
func call(method, path string, payload any, header http.Header, wantStatus int) ([]byte, error) {
	if apiURL == "" {
		return nil, fmt.Errorf("--api-url is required (or set KEYCTL_API_URL)")
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, apiURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != wantStatus {
		return nil, handleErrorResponse(resp.StatusCode, respBody)
	}
	return respBody, nil
}

// issueCmd は鍵の生成・ローテーションで共通のコマンドを組み立てる。
func issueCmd(use, short, suffix, verb string) *cobra.Command {
	var tenantID string
	var pf protectionFlags
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			if tenantID == "" {
				return fmt.Errorf("--tenant is required")
			}
			req, err := pf.request(cmd)
			if err != nil {
				return err
			}

			body, err := call(http.MethodPost, fmt.Sprintf("/v1/tenants/%s/keys%s", tenantID, suffix), req, nil, http.StatusCreated)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if output == "json" {
				fmt.Fprintln(out, string(body))
				return nil
			}
			var result struct {
				Generation uint   `json:"generation"`
				Protection string `json:"protection"`
			}
			if err := json.Unmarshal(body, &result); err != nil {
				return fmt.Errorf("parsing response: %w", err)
			}
			fmt.Fprintf(out, "%s key for tenant %q (generation: %d, protection: %s)\n", verb, tenantID, result.Generation, result.Protection)
			return nil
		},
	}
	cmd.Flags().StringVar(&tenantID, "tenant", "", "Tenant ID (required)")
	pf.register(cmd)
	cmd.MarkFlagRequired("tenant")
	return cmd
}

// createCmd は鍵の生成コマンド。
func createCmd() *cobra.Command {
	return issueCmd("create", "Create a new key for a tenant", "", "Created")
}

// rotateCmd は鍵のローテーションコマンド。
func rotateCmd() *cobra.Command {
	return issueCmd("rotate", "Rotate key for a tenant", "/rotate", "Rotated")
}

// getCmd は鍵の取得コマンド。
func getCmd() *cobra.Command {
	var tenantID string
	var generation uint
	var password string
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Get a key for a tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			if tenantID == "" {
				return fmt.Errorf("--tenant is required")
			}

			path := fmt.Sprintf("/v1/tenants/%s/keys/current", tenantID)
			if generation > 0 {
				path = fmt.Sprintf("/v1/tenants/%s/keys/%d", tenantID, generation)
			}
			header := http.Header{}
			if password != "" {
				header.Set(passwordHeader, password)
			}

			body, err := call(http.MethodGet, path, nil, header, http.StatusOK)
			if err != nil {
				return err
			}

			if output == "json" {
				fmt.Fprintln(cmd.OutOrStdout(), string(body))
				return nil
			}
			var result struct {
				Key string `json:"key"`
			}
			if err := json.Unmarshal(body, &result); err != nil {
				return fmt.Errorf("parsing response: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Key)
			return nil
		},
	}
	cmd.Flags().StringVar(&tenantID, "tenant", "", "Tenant ID (required)")
	cmd.Flags().UintVar(&generation, "generation", 0, "Key generation (optional, defaults to current)")
	cmd.Flags().StringVar(&password, "password", "", "Password for PASSWORD protected keys")
	cmd.MarkFlagRequired("tenant")
	return cmd
}

// listCmd は鍵一覧の取得コマンド。
func listCmd() *cobra.Command {
	var tenantID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all keys for a tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			if tenantID == "" {
				return fmt.Errorf("--tenant is required")
			}

			body, err := call(http.MethodGet, fmt.Sprintf("/v1/tenants/%s/keys", tenantID), nil, nil, http.StatusOK)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if output == "json" {
				fmt.Fprintln(out, string(body))
				return nil
			}
			var result struct {
				Keys []struct {
					Generation      uint   `json:"generation"`
					Status          string `json:"status"`
					Protection      string `json:"protection"`
					ValiditySeconds int    `json:"validity_seconds"`
					CreatedAt       string `json:"created_at"`
				} `json:"keys"`
			}
			if err := json.Unmarshal(body, &result); err != nil {
				return fmt.Errorf("parsing response: %w", err)
			}

			fmt.Fprintf(out, "%-12s %-10s %-12s %-9s %s\n", "GENERATION", "STATUS", "PROTECTION", "VALIDITY", "CREATED_AT")
			for _, k := range result.Keys {
				validity := "-"
				if k.ValiditySeconds > 0 {
					validity = fmt.Sprintf("%ds", k.ValiditySeconds)
				}
				fmt.Fprintf(out, "%-12d %-10s %-12s %-9s %s\n", k.Generation, k.Status, k.Protection, validity, k.CreatedAt)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tenantID, "tenant", "", "Tenant ID (required)")
	cmd.MarkFlagRequired("tenant")
	return cmd
}

// disableCmd は鍵の無効化コマンド。
func disableCmd() *cobra.Command {
	var tenantID string
	var generation uint
	cmd := &cobra.Command{
		Use:   "disable",
		Short: "Disable a key for a tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			if tenantID == "" {
				return fmt.Errorf("--tenant is required")
			}
			if generation == 0 {
				return fmt.Errorf("--generation is required")
			}

			if _, err := call(http.MethodDelete, fmt.Sprintf("/v1/tenants/%s/keys/%d", tenantID, generation), nil, nil, http.StatusAccepted); err != nil {
				return err
			}

			if output == "json" {
				fmt.Fprintln(cmd.OutOrStdout(), "{}")
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Disabled key for tenant %q (generation: %d)\n", tenantID, generation)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tenantID, "tenant", "", "Tenant ID (required)")
	cmd.Flags().UintVar(&generation, "generation", 0, "Key generation (required)")
	cmd.MarkFlagRequired("tenant")
	cmd.MarkFlagRequired("generation")
	return cmd
}

func handleErrorResponse(statusCode int, body []byte) error {
	var errResp struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&errResp); err == nil && errResp.Message != "" {
		if errResp.Code != "" {
			return fmt.Errorf("Error: %s (%s)", errResp.Message, errResp.Code)
		}
		return fmt.Errorf("Error: %s", errResp.Message)
	}
	return fmt.Errorf("Error: server returned status %d", statusCode)
}
