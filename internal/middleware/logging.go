// Package middleware はHTTPミドルウェアと監査ログを提供する。
package middleware

import (
	"context"
	"log/slog"
	"time"
)

// 監査ログの結果値。
const (
	ResultSuccess = "SUCCESS"
	ResultFailed  = "FAILED"
)

// AuditEntry は監査ログ1件分の内容。
type AuditEntry struct {
	Operation  string
	TenantID   string
	Generation uint
	Protection string // 保護方式が確定していない場合は空
	DeviceID   string
	Result     string
}

// WriteAuditLog は監査ログを出力する。
func WriteAuditLog(ctx context.Context, e AuditEntry) {
	attrs := []any{
		"operation", e.Operation,
		"tenant_id", e.TenantID,
		"generation", e.Generation,
		"result", e.Result,
		"timestamp", time.Now().UTC().Format(time.RFC3339),
	}
	if e.Protection != "" {
		attrs = append(attrs, "protection", e.Protection)
	}
	if e.DeviceID != "" {
		attrs = append(attrs, "device_id", e.DeviceID)
	}
	slog.InfoContext(ctx, "key operation completed", attrs...)
}
