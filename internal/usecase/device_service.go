package usecase

import (
	"context"
	"fmt"
	"strings"

	"key-protection-service/internal/domain"
)

const maxDeviceNameLength = 128

// DeviceRepository は端末プロファイルのデータアクセスのインターフェース。
type DeviceRepository interface {
	Create(ctx context.Context, device *domain.Device) error
	FindByTenantIDAndID(ctx context.Context, tenantID, id string) (*domain.Device, error)
	FindAllByTenantID(ctx context.Context, tenantID string) ([]*domain.Device, error)
}

// DeviceService は端末プロファイルと保護方式の対応可否を扱う。
type DeviceService struct {
	repo DeviceRepository
}

// NewDeviceService は新しいDeviceServiceを生成する。
func NewDeviceService(repo DeviceRepository) *DeviceService {
	return &DeviceService{repo: repo}
}

// RegisterDevice は端末プロファイルを登録する。
func (s *DeviceService) RegisterDevice(ctx context.Context, tenantID, name string, dc domain.DeviceContext) (*domain.Device, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxDeviceNameLength {
		return nil, fmt.Errorf("%w: name must be 1-%d characters", domain.ErrInvalidDevice, maxDeviceNameLength)
	}
	if dc.APILevel < 1 {
		return nil, fmt.Errorf("%w: api level must be positive, got %d", domain.ErrInvalidDevice, dc.APILevel)
	}

	device := &domain.Device{
		TenantID: tenantID,
		Name:     name,
		Context:  dc,
	}
	if err := s.repo.Create(ctx, device); err != nil {
		return nil, fmt.Errorf("creating device: %w", err)
	}
	return device, nil
}

// GetDevice は端末プロファイルを取得する。
func (s *DeviceService) GetDevice(ctx context.Context, tenantID, deviceID string) (*domain.Device, error) {
	device, err := s.repo.FindByTenantIDAndID(ctx, tenantID, deviceID)
	if err != nil {
		return nil, fmt.Errorf("finding device: %w", err)
	}
	if device == nil {
		return nil, domain.ErrDeviceNotFound
	}
	return device, nil
}

// ListDevices はテナントの端末プロファイル一覧を取得する。
func (s *DeviceService) ListDevices(ctx context.Context, tenantID string) ([]*domain.Device, error) {
	devices, err := s.repo.FindAllByTenantID(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("finding devices: %w", err)
	}
	return devices, nil
}

// Capabilities は端末における全保護方式の利用可否を返す。
func (s *DeviceService) Capabilities(ctx context.Context, tenantID, deviceID string) ([]domain.ProtectionCapability, error) {
	device, err := s.GetDevice(ctx, tenantID, deviceID)
	if err != nil {
		return nil, err
	}
	return device.Capabilities(), nil
}
