package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"key-protection-service/internal/domain"
	"key-protection-service/internal/middleware"
	"key-protection-service/internal/usecase"
	"key-protection-service/pkg/httputil"
)

// DeviceHandler は端末プロファイルのHTTPハンドラを提供する。
type DeviceHandler struct {
	service *usecase.DeviceService
}

// NewDeviceHandler は新しいDeviceHandlerを生成する。
func NewDeviceHandler(service *usecase.DeviceService) *DeviceHandler {
	return &DeviceHandler{service: service}
}

// RegisterDeviceRequest は端末登録のリクエスト形式。
type RegisterDeviceRequest struct {
	Name                         string `json:"name"`
	APILevel                     int    `json:"api_level"`
	FingerprintPermissionGranted bool   `json:"fingerprint_permission_granted"`
	FingerprintHardwareDetected  bool   `json:"fingerprint_hardware_detected"`
}

// DeviceResponse は端末プロファイルのレスポンス形式。
type DeviceResponse struct {
	ID                           string                  `json:"id"`
	TenantID                     string                  `json:"tenant_id"`
	Name                         string                  `json:"name"`
	APILevel                     int                     `json:"api_level"`
	FingerprintPermissionGranted bool                    `json:"fingerprint_permission_granted"`
	FingerprintHardwareDetected  bool                    `json:"fingerprint_hardware_detected"`
	SupportedProtections         []domain.ProtectionKind `json:"supported_protections"`
	CreatedAt                    string                  `json:"created_at"`
}

func newDeviceResponse(d *domain.Device) DeviceResponse {
	return DeviceResponse{
		ID:                           d.ID,
		TenantID:                     d.TenantID,
		Name:                         d.Name,
		APILevel:                     d.Context.APILevel,
		FingerprintPermissionGranted: d.Context.FingerprintPermissionGranted,
		FingerprintHardwareDetected:  d.Context.FingerprintHardwareDetected,
		SupportedProtections:         domain.SupportedKinds(d.Context),
		CreatedAt:                    d.CreatedAt.Format(time.RFC3339),
	}
}

// DeviceListResponse は端末一覧のレスポンス形式。
type DeviceListResponse struct {
	Devices []DeviceResponse `json:"devices"`
}

// CapabilityResponse は保護方式ごとの利用可否。
type CapabilityResponse struct {
	Protection domain.ProtectionKind `json:"protection"`
	Ordinal    int                   `json:"ordinal"`
	Supported  bool                  `json:"supported"`
}

// CapabilityListResponse は端末の保護方式一覧のレスポンス形式。
type CapabilityListResponse struct {
	DeviceID    string               `json:"device_id"`
	Protections []CapabilityResponse `json:"protections"`
}

func writeDeviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidDevice):
		httputil.Error(w, http.StatusBadRequest, "INVALID_DEVICE", err.Error())
	case errors.Is(err, domain.ErrDeviceNotFound):
		httputil.Error(w, http.StatusNotFound, "DEVICE_NOT_FOUND", "device not found for this tenant")
	default:
		httputil.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// RegisterDevice は端末プロファイルを登録する。
func (h *DeviceHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := chi.URLParam(r, "tenant_id")
	if err := validateTenantID(tenantID); err != nil {
		httputil.Error(w, http.StatusBadRequest, "INVALID_TENANT_ID", "invalid tenant ID format")
		return
	}

	var req RegisterDeviceRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "INVALID_DEVICE", "invalid request body")
		return
	}

	device, err := h.service.RegisterDevice(ctx, tenantID, req.Name, domain.DeviceContext{
		APILevel:                     req.APILevel,
		FingerprintPermissionGranted: req.FingerprintPermissionGranted,
		FingerprintHardwareDetected:  req.FingerprintHardwareDetected,
	})
	if err != nil {
		middleware.WriteAuditLog(ctx, middleware.AuditEntry{Operation: "REGISTER_DEVICE", TenantID: tenantID, Result: middleware.ResultFailed})
		writeDeviceError(w, err)
		return
	}

	middleware.WriteAuditLog(ctx, middleware.AuditEntry{Operation: "REGISTER_DEVICE", TenantID: tenantID, DeviceID: device.ID, Result: middleware.ResultSuccess})
	httputil.JSON(w, http.StatusCreated, newDeviceResponse(device))
}

// ListDevices は端末プロファイル一覧を取得する。
func (h *DeviceHandler) ListDevices(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenant_id")
	if err := validateTenantID(tenantID); err != nil {
		httputil.Error(w, http.StatusBadRequest, "INVALID_TENANT_ID", "invalid tenant ID format")
		return
	}

	devices, err := h.service.ListDevices(r.Context(), tenantID)
	if err != nil {
		writeDeviceError(w, err)
		return
	}

	response := DeviceListResponse{
		Devices: make([]DeviceResponse, len(devices)),
	}
	for i, d := range devices {
		response.Devices[i] = newDeviceResponse(d)
	}
	httputil.JSON(w, http.StatusOK, response)
}

// GetDevice は端末プロファイルを取得する。
func (h *DeviceHandler) GetDevice(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenant_id")
	if err := validateTenantID(tenantID); err != nil {
		httputil.Error(w, http.StatusBadRequest, "INVALID_TENANT_ID", "invalid tenant ID format")
		return
	}

	device, err := h.service.GetDevice(r.Context(), tenantID, chi.URLParam(r, "device_id"))
	if err != nil {
		writeDeviceError(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, newDeviceResponse(device))
}

// GetProtections は端末における全保護方式の利用可否を返す。
func (h *DeviceHandler) GetProtections(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenant_id")
	if err := validateTenantID(tenantID); err != nil {
		httputil.Error(w, http.StatusBadRequest, "INVALID_TENANT_ID", "invalid tenant ID format")
		return
	}

	deviceID := chi.URLParam(r, "device_id")
	caps, err := h.service.Capabilities(r.Context(), tenantID, deviceID)
	if err != nil {
		writeDeviceError(w, err)
		return
	}

	response := CapabilityListResponse{
		DeviceID:    deviceID,
		Protections: make([]CapabilityResponse, len(caps)),
	}
	for i, c := range caps {
		response.Protections[i] = CapabilityResponse{
			Protection: c.Kind,
			Ordinal:    c.Kind.Ordinal(),
			Supported:  c.Supported,
		}
	}
	httputil.JSON(w, http.StatusOK, response)
}
