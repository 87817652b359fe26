package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"key-protection-service/internal/domain"
)

// protectionFlags は鍵の生成・ローテーション時に指定する保護方式のフラグ。
type protectionFlags struct {
	protection string
	validity   int
	password   string
	deviceID   string
}

func (f *protectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.protection, "protection", "NONE", "Protection: NONE, FINGERPRINT, LOCK_SCREEN, PASSWORD")
	cmd.Flags().IntVar(&f.validity, "validity", domain.DefaultLockScreenTimeout, "Seconds the key stays usable after unlock (LOCK_SCREEN only)")
	cmd.Flags().StringVar(&f.password, "password", "", "Password (PASSWORD only)")
	cmd.Flags().StringVar(&f.deviceID, "device", "", "Device ID to check protection support against")
}

// keyRequest はAPIに送る鍵生成リクエスト。
type keyRequest struct {
	Protection      string `json:"protection"`
	ValiditySeconds *int   `json:"validity_seconds,omitempty"`
	Password        string `json:"password,omitempty"`
	DeviceID        string `json:"device_id,omitempty"`
}

// request はフラグを検証し、APIに送るリクエストを組み立てる。
func (f *protectionFlags) request(cmd *cobra.Command) (*keyRequest, error) {
	kind, err := domain.ParseProtectionKind(f.protection)
	if err != nil {
		return nil, err
	}

	validitySet := cmd.Flags().Changed("validity")
	if validitySet && kind != domain.ProtectionLockScreen {
		return nil, fmt.Errorf("--validity is only valid with --protection LOCK_SCREEN")
	}
	if f.password != "" && kind != domain.ProtectionPassword {
		return nil, fmt.Errorf("--password is only valid with --protection PASSWORD")
	}

	var p domain.KeyProtection
	switch kind {
	case domain.ProtectionLockScreen:
		p = domain.WithLockScreenTimeout(f.validity)
	case domain.ProtectionPassword:
		p = domain.WithPassword(f.password)
	default:
		p, err = domain.FromKind(kind)
		if err != nil {
			return nil, err
		}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	req := &keyRequest{
		Protection: kind.String(),
		Password:   f.password,
		DeviceID:   f.deviceID,
	}
	if validitySet {
		v := f.validity
		req.ValiditySeconds = &v
	}
	return req, nil
}

// protectionCmd は保護方式をローカルで確認するコマンド群。
func protectionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "protection",
		Short: "Inspect key protection kinds",
	}
	cmd.AddCommand(protectionKindsCmd())
	cmd.AddCommand(protectionCheckCmd())
	return cmd
}

func protectionKindsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List protection kinds and their stored ordinals",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ORDINAL\tNAME")
			for _, k := range domain.ProtectionKinds() {
				fmt.Fprintf(w, "%d\t%s\n", k.Ordinal(), k)
			}
			return w.Flush()
		},
	}
}

func protectionCheckCmd() *cobra.Command {
	var protection string
	var dc domain.DeviceContext
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check which protection kinds a device can use",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dc.APILevel < 1 {
				return fmt.Errorf("--api-level must be positive")
			}

			kinds := domain.ProtectionKinds()
			if protection != "" {
				kind, err := domain.ParseProtectionKind(protection)
				if err != nil {
					return err
				}
				kinds = []domain.ProtectionKind{kind}
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "PROTECTION\tSUPPORTED")
			for _, k := range kinds {
				ok, err := domain.IsSupported(k, dc)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%t\n", k, ok)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&protection, "protection", "", "Protection kind to check (default: all)")
	cmd.Flags().IntVar(&dc.APILevel, "api-level", 0, "Device platform API level (required)")
	cmd.Flags().BoolVar(&dc.FingerprintPermissionGranted, "fingerprint-permission", false, "Fingerprint permission is granted")
	cmd.Flags().BoolVar(&dc.FingerprintHardwareDetected, "fingerprint-hardware", false, "Fingerprint hardware is present")
	return cmd
}
