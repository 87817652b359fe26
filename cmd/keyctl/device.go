package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
)

// deviceCmd は端末プロファイルのコマンド群。
func deviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "device",
		Short: "Manage device profiles",
	}
	cmd.AddCommand(deviceRegisterCmd())
	cmd.AddCommand(deviceListCmd())
	cmd.AddCommand(deviceCapabilitiesCmd())
	return cmd
}

type deviceResult struct {
	ID                   string   `json:"id"`
	Name                 string   `json:"name"`
	APILevel             int      `json:"api_level"`
	SupportedProtections []string `json:"supported_protections"`
}

func deviceRegisterCmd() *cobra.Command {
	var tenantID string
	var req struct {
		Name                         string `json:"name"`
		APILevel                     int    `json:"api_level"`
		FingerprintPermissionGranted bool   `json:"fingerprint_permission_granted"`
		FingerprintHardwareDetected  bool   `json:"fingerprint_hardware_detected"`
	}
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a device profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := call(http.MethodPost, fmt.Sprintf("/v1/tenants/%s/devices", tenantID), req, nil, http.StatusCreated)
			if err != nil {
				return err
			}

			if output == "json" {
				fmt.Fprintln(cmd.OutOrStdout(), string(body))
				return nil
			}
			var d deviceResult
			if err := json.Unmarshal(body, &d); err != nil {
				return fmt.Errorf("parsing response: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered device %s (supported: %s)\n", d.ID, strings.Join(d.SupportedProtections, ","))
			return nil
		},
	}
	cmd.Flags().StringVar(&tenantID, "tenant", "", "Tenant ID (required)")
	cmd.Flags().StringVar(&req.Name, "name", "", "Device name (required)")
	cmd.Flags().IntVar(&req.APILevel, "api-level", 0, "Device platform API level (required)")
	cmd.Flags().BoolVar(&req.FingerprintPermissionGranted, "fingerprint-permission", false, "Fingerprint permission is granted")
	cmd.Flags().BoolVar(&req.FingerprintHardwareDetected, "fingerprint-hardware", false, "Fingerprint hardware is present")
	cmd.MarkFlagRequired("tenant")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("api-level")
	return cmd
}

func deviceListCmd() *cobra.Command {
	var tenantID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List device profiles for a tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := call(http.MethodGet, fmt.Sprintf("/v1/tenants/%s/devices", tenantID), nil, nil, http.StatusOK)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if output == "json" {
				fmt.Fprintln(out, string(body))
				return nil
			}
			var result struct {
				Devices []deviceResult `json:"devices"`
			}
			if err := json.Unmarshal(body, &result); err != nil {
				return fmt.Errorf("parsing response: %w", err)
			}

			fmt.Fprintf(out, "%-38s %-20s %-9s %s\n", "ID", "NAME", "API", "SUPPORTED")
			for _, d := range result.Devices {
				fmt.Fprintf(out, "%-38s %-20s %-9d %s\n", d.ID, d.Name, d.APILevel, strings.Join(d.SupportedProtections, ","))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tenantID, "tenant", "", "Tenant ID (required)")
	cmd.MarkFlagRequired("tenant")
	return cmd
}

func deviceCapabilitiesCmd() *cobra.Command {
	var tenantID, deviceID string
	cmd := &cobra.Command{
		Use:   "capabilities",
		Short: "Show protection support for a registered device",
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := call(http.MethodGet, fmt.Sprintf("/v1/tenants/%s/devices/%s/protections", tenantID, deviceID), nil, nil, http.StatusOK)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if output == "json" {
				fmt.Fprintln(out, string(body))
				return nil
			}
			var result struct {
				Protections []struct {
					Protection string `json:"protection"`
					Supported  bool   `json:"supported"`
				} `json:"protections"`
			}
			if err := json.Unmarshal(body, &result); err != nil {
				return fmt.Errorf("parsing response: %w", err)
			}

			fmt.Fprintf(out, "%-12s %s\n", "PROTECTION", "SUPPORTED")
			for _, p := range result.Protections {
				fmt.Fprintf(out, "%-12s %t\n", p.Protection, p.Supported)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tenantID, "tenant", "", "Tenant ID (required)")
	cmd.Flags().StringVar(&deviceID, "device", "", "Device ID (required)")
	cmd.MarkFlagRequired("tenant")
	cmd.MarkFlagRequired("device")
	return cmd
}
