package usecase

import (
	"context"
	"errors"
	"testing"

	"key-protection-service/internal/domain"
)

func TestDeviceService_RegisterDevice(t *testing.T) {
	repo := newMockDeviceRepository()
	svc := NewDeviceService(repo)

	device, err := svc.RegisterDevice(context.Background(), "tenant-001", "  Pixel 8 ", domain.DeviceContext{
		APILevel:                     34,
		FingerprintPermissionGranted: true,
		FingerprintHardwareDetected:  true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if device.ID == "" {
		t.Error("expected ID to be set")
	}
	if device.Name != "Pixel 8" {
		t.Errorf("want trimmed name, got %q", device.Name)
	}
	if len(repo.devices) != 1 {
		t.Errorf("want 1 stored device, got %d", len(repo.devices))
	}
}

func TestDeviceService_RegisterDevice_Invalid(t *testing.T) {
	tests := []struct {
		name       string
		deviceName string
		apiLevel   int
	}{
		{"empty name", " ", 30},
		{"zero api level", "phone", 0},
		{"negative api level", "phone", -3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewDeviceService(newMockDeviceRepository())
			_, err := svc.RegisterDevice(context.Background(), "tenant-001", tt.deviceName, domain.DeviceContext{APILevel: tt.apiLevel})
			if !errors.Is(err, domain.ErrInvalidDevice) {
				t.Errorf("want ErrInvalidDevice, got %v", err)
			}
		})
	}
}

func TestDeviceService_GetDevice_NotFound(t *testing.T) {
	svc := NewDeviceService(newMockDeviceRepository(modernDevice))

	_, err := svc.GetDevice(context.Background(), "tenant-999", modernDevice.ID)
	if !errors.Is(err, domain.ErrDeviceNotFound) {
		t.Errorf("want ErrDeviceNotFound, got %v", err)
	}
}

func TestDeviceService_Capabilities(t *testing.T) {
	svc := NewDeviceService(newMockDeviceRepository(modernDevice, legacyDevice))

	caps, err := svc.Capabilities(context.Background(), "tenant-001", legacyDevice.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[domain.ProtectionKind]bool{
		domain.ProtectionNone:        true,
		domain.ProtectionFingerprint: false,
		domain.ProtectionLockScreen:  false,
		domain.ProtectionPassword:    true,
	}
	for _, c := range caps {
		if c.Supported != want[c.Kind] {
			t.Errorf("%s: got %v, want %v", c.Kind, c.Supported, want[c.Kind])
		}
	}

	caps, err = svc.Capabilities(context.Background(), "tenant-001", modernDevice.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, c := range caps {
		if !c.Supported {
			t.Errorf("%s: want supported on modern device", c.Kind)
		}
	}
}

func TestDeviceService_ListDevices_Error(t *testing.T) {
	repo := newMockDeviceRepository()
	repo.findErr = errors.New("db down")
	svc := NewDeviceService(repo)

	if _, err := svc.ListDevices(context.Background(), "tenant-001"); err == nil {
		t.Error("want error")
	}
}
