package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestWriteAuditLog(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	WriteAuditLog(context.Background(), AuditEntry{
		Operation:  "CREATE_KEY",
		TenantID:   "tenant-001",
		Generation: 1,
		Protection: "FINGERPRINT",
		Result:     ResultSuccess,
	})

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("invalid json log: %v", err)
	}
	if rec["operation"] != "CREATE_KEY" {
		t.Errorf("want operation CREATE_KEY, got %v", rec["operation"])
	}
	if rec["protection"] != "FINGERPRINT" {
		t.Errorf("want protection FINGERPRINT, got %v", rec["protection"])
	}
	if _, ok := rec["device_id"]; ok {
		t.Error("device_id must be omitted when empty")
	}
}
