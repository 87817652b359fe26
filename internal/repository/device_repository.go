package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"key-protection-service/internal/domain"
)

// DeviceModel はgorm用の端末プロファイルモデル。
type DeviceModel struct {
	ID                           string    `gorm:"type:char(36);primaryKey"`
	TenantID                     string    `gorm:"type:varchar(64);not null;index:idx_devices_tenant_id"`
	Name                         string    `gorm:"type:varchar(128);not null"`
	APILevel                     int       `gorm:"column:api_level;not null"`
	FingerprintPermissionGranted bool      `gorm:"not null;default:false"`
	FingerprintHardwareDetected  bool      `gorm:"not null;default:false"`
	CreatedAt                    time.Time `gorm:"type:datetime(6);not null;autoCreateTime"`
	UpdatedAt                    time.Time `gorm:"type:datetime(6);not null;autoUpdateTime"`
}

// TableName はテーブル名を返す。
func (DeviceModel) TableName() string {
	return "devices"
}

// BeforeCreate はレコード作成前にUUIDを生成する。
func (d *DeviceModel) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	return nil
}

func (d *DeviceModel) toDomain() *domain.Device {
	return &domain.Device{
		ID:       d.ID,
		TenantID: d.TenantID,
		Name:     d.Name,
		Context: domain.DeviceContext{
			APILevel:                     d.APILevel,
			FingerprintPermissionGranted: d.FingerprintPermissionGranted,
			FingerprintHardwareDetected:  d.FingerprintHardwareDetected,
		},
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// DeviceRepository は端末プロファイルのデータアクセスを提供する。
type DeviceRepository struct {
	db *gorm.DB
}

// NewDeviceRepository は新しいDeviceRepositoryを生成する。
func NewDeviceRepository(db *gorm.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// Create は端末プロファイルを保存する。
func (r *DeviceRepository) Create(ctx context.Context, device *domain.Device) error {
	model := &DeviceModel{
		ID:                           device.ID,
		TenantID:                     device.TenantID,
		Name:                         device.Name,
		APILevel:                     device.Context.APILevel,
		FingerprintPermissionGranted: device.Context.FingerprintPermissionGranted,
		FingerprintHardwareDetected:  device.Context.FingerprintHardwareDetected,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		slog.ErrorContext(ctx, "failed to create device",
			"operation", "create_device",
			"tenant_id", device.TenantID,
			"error", err,
		)
		return err
	}
	device.ID = model.ID
	device.CreatedAt = model.CreatedAt
	device.UpdatedAt = model.UpdatedAt
	return nil
}

// FindByTenantIDAndID は指定されたテナントの端末を取得する。存在しない場合はnil。
func (r *DeviceRepository) FindByTenantIDAndID(ctx context.Context, tenantID, id string) (*domain.Device, error) {
	var model DeviceModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.ErrorContext(ctx, "failed to find device",
			"operation", "find_device",
			"tenant_id", tenantID,
			"device_id", id,
			"error", err,
		)
		return nil, err
	}
	return model.toDomain(), nil
}

// FindAllByTenantID は指定されたテナントの全端末を登録順に取得する。
func (r *DeviceRepository) FindAllByTenantID(ctx context.Context, tenantID string) ([]*domain.Device, error) {
	var models []DeviceModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		slog.ErrorContext(ctx, "failed to find devices",
			"operation", "find_all_devices",
			"tenant_id", tenantID,
			"error", err,
		)
		return nil, err
	}

	devices := make([]*domain.Device, len(models))
	for i := range models {
		devices[i] = models[i].toDomain()
	}
	return devices, nil
}
