// Package handler はHTTPハンドラを提供する。
package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"key-protection-service/internal/domain"
	"key-protection-service/internal/middleware"
	"key-protection-service/internal/usecase"
	"key-protection-service/pkg/httputil"
)

// PasswordHeader はパスワード保護の鍵を取り出す際に使うヘッダー。
const PasswordHeader = "X-Key-Password"

const maxBodyBytes = 1 << 16

var tenantIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// KeyHandler は鍵操作のHTTPハンドラを提供する。
type KeyHandler struct {
	service *usecase.KeyService
}

// NewKeyHandler は新しいKeyHandlerを生成する。
func NewKeyHandler(service *usecase.KeyService) *KeyHandler {
	return &KeyHandler{service: service}
}

func validateTenantID(tenantID string) error {
	if tenantID == "" {
		return domain.ErrInvalidTenantID
	}
	if len(tenantID) > 64 {
		return domain.ErrInvalidTenantID
	}
	if !tenantIDRegex.MatchString(tenantID) {
		return domain.ErrInvalidTenantID
	}
	return nil
}

func validateGeneration(genStr string) (uint, error) {
	gen, err := strconv.ParseUint(genStr, 10, 32)
	if err != nil || gen < 1 {
		return 0, domain.ErrInvalidGeneration
	}
	return uint(gen), nil
}

// CreateKeyRequest は鍵生成・ローテーションのリクエスト形式。
// ボディが空の場合は保護なしとして扱う。
type CreateKeyRequest struct {
	Protection      *domain.ProtectionKind `json:"protection"`
	ValiditySeconds *int                   `json:"validity_seconds,omitempty"`
	Password        string                 `json:"password,omitempty"`
	DeviceID        string                 `json:"device_id,omitempty"`
}

// toInput はリクエストを保護ポリシー付きの入力に変換する。
func (req CreateKeyRequest) toInput() (usecase.CreateKeyInput, error) {
	kind := domain.ProtectionNone
	if req.Protection != nil {
		kind = *req.Protection
	}
	if req.ValiditySeconds != nil && kind != domain.ProtectionLockScreen {
		return usecase.CreateKeyInput{}, fmt.Errorf("%w: validity_seconds is only valid for LOCK_SCREEN", domain.ErrInvalidArgument)
	}
	if req.Password != "" && kind != domain.ProtectionPassword {
		return usecase.CreateKeyInput{}, fmt.Errorf("%w: password is only valid for PASSWORD", domain.ErrInvalidArgument)
	}

	var p domain.KeyProtection
	switch kind {
	case domain.ProtectionLockScreen:
		p = domain.WithLockScreen()
		if req.ValiditySeconds != nil {
			p = domain.WithLockScreenTimeout(*req.ValiditySeconds)
		}
	case domain.ProtectionPassword:
		p = domain.WithPassword(req.Password)
	default:
		var err error
		p, err = domain.FromKind(kind)
		if err != nil {
			return usecase.CreateKeyInput{}, err
		}
	}
	return usecase.CreateKeyInput{Protection: p, DeviceID: req.DeviceID}, nil
}

func decodeCreateKeyRequest(r *http.Request) (usecase.CreateKeyInput, error) {
	var req CreateKeyRequest
	if r.Body != nil {
		err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req)
		if err != nil && !errors.Is(err, io.EOF) {
			if errors.Is(err, domain.ErrInvalidArgument) {
				return usecase.CreateKeyInput{}, err
			}
			return usecase.CreateKeyInput{}, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
		}
	}
	return req.toInput()
}

// KeyMetadataResponse は鍵メタデータのレスポンス形式。
type KeyMetadataResponse struct {
	TenantID        string                `json:"tenant_id"`
	Generation      uint                  `json:"generation"`
	Status          string                `json:"status"`
	Protection      domain.ProtectionKind `json:"protection"`
	ValiditySeconds int                   `json:"validity_seconds,omitempty"`
	DeviceID        string                `json:"device_id,omitempty"`
	CreatedAt       string                `json:"created_at"`
}

func newKeyMetadataResponse(m *domain.KeyMetadata) KeyMetadataResponse {
	return KeyMetadataResponse{
		TenantID:        m.TenantID,
		Generation:      m.Generation,
		Status:          string(m.Status),
		Protection:      m.ProtectionKind,
		ValiditySeconds: m.ValiditySeconds,
		DeviceID:        m.DeviceID,
		CreatedAt:       m.CreatedAt.Format(time.RFC3339),
	}
}

// KeyResponse は鍵のレスポンス形式。
type KeyResponse struct {
	TenantID   string                `json:"tenant_id"`
	Generation uint                  `json:"generation"`
	Protection domain.ProtectionKind `json:"protection"`
	Key        string                `json:"key"`
}

func newKeyResponse(k *domain.Key) KeyResponse {
	return KeyResponse{
		TenantID:   k.TenantID,
		Generation: k.Generation,
		Protection: k.ProtectionKind,
		Key:        base64.StdEncoding.EncodeToString(k.Key),
	}
}

// KeyListResponse は鍵一覧のレスポンス形式。
type KeyListResponse struct {
	Keys []KeyMetadataResponse `json:"keys"`
}

// writeKeyError はユースケースのエラーをHTTPレスポンスに変換する。
// notFoundMessage は鍵が見つからない場合のメッセージ。
func writeKeyError(w http.ResponseWriter, err error, notFoundMessage string) {
	switch {
	case errors.Is(err, domain.ErrCorruptedRecord):
		// 保存済みデータの破損はサーバー側の障害として扱い、詳細は返さない
		httputil.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	case errors.Is(err, domain.ErrInvalidArgument):
		httputil.Error(w, http.StatusBadRequest, "INVALID_PROTECTION", err.Error())
	case errors.Is(err, domain.ErrKeyNotFound):
		httputil.Error(w, http.StatusNotFound, "KEY_NOT_FOUND", notFoundMessage)
	case errors.Is(err, domain.ErrDeviceNotFound):
		httputil.Error(w, http.StatusNotFound, "DEVICE_NOT_FOUND", "device not found for this tenant")
	case errors.Is(err, domain.ErrKeyAlreadyExists):
		httputil.Error(w, http.StatusConflict, "KEY_ALREADY_EXISTS", "key already exists for this tenant")
	case errors.Is(err, domain.ErrKeyAlreadyDisabled):
		httputil.Error(w, http.StatusConflict, "KEY_ALREADY_DISABLED", "key is already disabled")
	case errors.Is(err, domain.ErrKeyDisabled):
		httputil.Error(w, http.StatusGone, "KEY_DISABLED", "key has been disabled")
	case errors.Is(err, domain.ErrProtectionUnsupported):
		httputil.Error(w, http.StatusUnprocessableEntity, "PROTECTION_UNSUPPORTED", "protection is not supported by the device")
	case errors.Is(err, domain.ErrPasswordRequired):
		httputil.Error(w, http.StatusUnauthorized, "PASSWORD_REQUIRED", "password is required for this key")
	case errors.Is(err, domain.ErrPasswordMismatch):
		httputil.Error(w, http.StatusForbidden, "PASSWORD_MISMATCH", "password does not match")
	default:
		httputil.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// CreateKey は新しい暗号鍵を生成する。
func (h *KeyHandler) CreateKey(w http.ResponseWriter, r *http.Request) {
	h.issue(w, r, "CREATE_KEY", h.service.CreateKey)
}

// RotateKey は鍵をローテーションする。
func (h *KeyHandler) RotateKey(w http.ResponseWriter, r *http.Request) {
	h.issue(w, r, "ROTATE_KEY", h.service.RotateKey)
}

type issueFunc func(ctx context.Context, tenantID string, in usecase.CreateKeyInput) (*domain.KeyMetadata, error)

// issue は鍵生成とローテーションで共通のリクエスト処理を行う。
func (h *KeyHandler) issue(w http.ResponseWriter, r *http.Request, operation string, fn issueFunc) {
	ctx := r.Context()
	tenantID := chi.URLParam(r, "tenant_id")
	if err := validateTenantID(tenantID); err != nil {
		httputil.Error(w, http.StatusBadRequest, "INVALID_TENANT_ID", "invalid tenant ID format")
		return
	}

	in, err := decodeCreateKeyRequest(r)
	if err != nil {
		middleware.WriteAuditLog(ctx, middleware.AuditEntry{Operation: operation, TenantID: tenantID, Result: middleware.ResultFailed})
		writeKeyError(w, err, "")
		return
	}

	entry := middleware.AuditEntry{
		Operation:  operation,
		TenantID:   tenantID,
		Protection: in.Protection.Kind().String(),
		DeviceID:   in.DeviceID,
	}

	metadata, err := fn(ctx, tenantID, in)
	if err != nil {
		entry.Result = middleware.ResultFailed
		middleware.WriteAuditLog(ctx, entry)
		writeKeyError(w, err, "key not found for this tenant")
		return
	}

	entry.Generation = metadata.Generation
	entry.Result = middleware.ResultSuccess
	middleware.WriteAuditLog(ctx, entry)
	httputil.JSON(w, http.StatusCreated, newKeyMetadataResponse(metadata))
}

// GetCurrentKey は現在有効な鍵を取得する。
func (h *KeyHandler) GetCurrentKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := chi.URLParam(r, "tenant_id")
	if err := validateTenantID(tenantID); err != nil {
		httputil.Error(w, http.StatusBadRequest, "INVALID_TENANT_ID", "invalid tenant ID format")
		return
	}

	key, err := h.service.GetCurrentKey(ctx, tenantID, usecase.Unlock{Password: r.Header.Get(PasswordHeader)})
	if err != nil {
		middleware.WriteAuditLog(ctx, middleware.AuditEntry{Operation: "GET_CURRENT_KEY", TenantID: tenantID, Result: middleware.ResultFailed})
		writeKeyError(w, err, "key not found for this tenant")
		return
	}

	middleware.WriteAuditLog(ctx, middleware.AuditEntry{
		Operation:  "GET_CURRENT_KEY",
		TenantID:   tenantID,
		Generation: key.Generation,
		Protection: key.ProtectionKind.String(),
		Result:     middleware.ResultSuccess,
	})
	httputil.JSON(w, http.StatusOK, newKeyResponse(key))
}

// GetKeyByGeneration は指定された世代の鍵を取得する。
func (h *KeyHandler) GetKeyByGeneration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := chi.URLParam(r, "tenant_id")
	if err := validateTenantID(tenantID); err != nil {
		httputil.Error(w, http.StatusBadRequest, "INVALID_TENANT_ID", "invalid tenant ID format")
		return
	}

	generation, err := validateGeneration(chi.URLParam(r, "generation"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "INVALID_GENERATION", "invalid generation number")
		return
	}

	key, err := h.service.GetKeyByGeneration(ctx, tenantID, generation, usecase.Unlock{Password: r.Header.Get(PasswordHeader)})
	if err != nil {
		middleware.WriteAuditLog(ctx, middleware.AuditEntry{Operation: "GET_KEY_BY_GENERATION", TenantID: tenantID, Generation: generation, Result: middleware.ResultFailed})
		writeKeyError(w, err, "key not found for this tenant and generation")
		return
	}

	middleware.WriteAuditLog(ctx, middleware.AuditEntry{
		Operation:  "GET_KEY_BY_GENERATION",
		TenantID:   tenantID,
		Generation: generation,
		Protection: key.ProtectionKind.String(),
		Result:     middleware.ResultSuccess,
	})
	httputil.JSON(w, http.StatusOK, newKeyResponse(key))
}

// ListKeys は鍵一覧を取得する。
func (h *KeyHandler) ListKeys(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := chi.URLParam(r, "tenant_id")
	if err := validateTenantID(tenantID); err != nil {
		httputil.Error(w, http.StatusBadRequest, "INVALID_TENANT_ID", "invalid tenant ID format")
		return
	}

	keys, err := h.service.ListKeys(ctx, tenantID)
	if err != nil {
		middleware.WriteAuditLog(ctx, middleware.AuditEntry{Operation: "LIST_KEYS", TenantID: tenantID, Result: middleware.ResultFailed})
		writeKeyError(w, err, "")
		return
	}

	middleware.WriteAuditLog(ctx, middleware.AuditEntry{Operation: "LIST_KEYS", TenantID: tenantID, Result: middleware.ResultSuccess})
	response := KeyListResponse{
		Keys: make([]KeyMetadataResponse, len(keys)),
	}
	for i, k := range keys {
		response.Keys[i] = newKeyMetadataResponse(k)
	}
	httputil.JSON(w, http.StatusOK, response)
}

// DisableKey は鍵を無効化する。
func (h *KeyHandler) DisableKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := chi.URLParam(r, "tenant_id")
	if err := validateTenantID(tenantID); err != nil {
		httputil.Error(w, http.StatusBadRequest, "INVALID_TENANT_ID", "invalid tenant ID format")
		return
	}

	generation, err := validateGeneration(chi.URLParam(r, "generation"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "INVALID_GENERATION", "invalid generation number")
		return
	}

	if err := h.service.DisableKey(ctx, tenantID, generation); err != nil {
		middleware.WriteAuditLog(ctx, middleware.AuditEntry{Operation: "DISABLE_KEY", TenantID: tenantID, Generation: generation, Result: middleware.ResultFailed})
		writeKeyError(w, err, "key not found for this tenant and generation")
		return
	}

	middleware.WriteAuditLog(ctx, middleware.AuditEntry{Operation: "DISABLE_KEY", TenantID: tenantID, Generation: generation, Result: middleware.ResultSuccess})
	w.WriteHeader(http.StatusAccepted)
}
