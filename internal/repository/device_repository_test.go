package repository

import (
	"context"
	"testing"

	"key-protection-service/internal/domain"
)

func TestDeviceRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewDeviceRepository(db)

	device := &domain.Device{
		TenantID: "tenant-1",
		Name:     "Pixel",
		Context: domain.DeviceContext{
			APILevel:                     29,
			FingerprintPermissionGranted: true,
			FingerprintHardwareDetected:  true,
		},
	}
	if err := repo.Create(ctx, device); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if device.ID == "" {
		t.Fatal("expected ID to be generated, got empty")
	}

	found, err := repo.FindByTenantIDAndID(ctx, "tenant-1", device.ID)
	if err != nil {
		t.Fatalf("FindByTenantIDAndID failed: %v", err)
	}
	if found == nil {
		t.Fatal("expected device, got nil")
	}
	if found.Context != device.Context {
		t.Errorf("expected context %+v, got %+v", device.Context, found.Context)
	}

	// 別テナントからは見えない
	found, err = repo.FindByTenantIDAndID(ctx, "tenant-2", device.ID)
	if err != nil {
		t.Fatalf("FindByTenantIDAndID failed: %v", err)
	}
	if found != nil {
		t.Errorf("expected nil, got %+v", found)
	}
}

func TestDeviceRepository_FindAllByTenantID(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewDeviceRepository(db)

	for _, name := range []string{"a", "b"} {
		if err := repo.Create(ctx, &domain.Device{TenantID: "tenant-1", Name: name, Context: domain.DeviceContext{APILevel: 23}}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	if err := repo.Create(ctx, &domain.Device{TenantID: "tenant-2", Name: "c", Context: domain.DeviceContext{APILevel: 23}}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	devices, err := repo.FindAllByTenantID(ctx, "tenant-1")
	if err != nil {
		t.Fatalf("FindAllByTenantID failed: %v", err)
	}
	if len(devices) != 2 {
		t.Errorf("expected 2 devices, got %d", len(devices))
	}
}
