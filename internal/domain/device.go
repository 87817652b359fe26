package domain

import "time"

// Device は保護機能の前提条件を報告した端末を表す。
type Device struct {
	ID        string
	TenantID  string
	Name      string
	Context   DeviceContext
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Supports は端末が保護方式を利用できるかを返す。
func (d *Device) Supports(kind ProtectionKind) (bool, error) {
	return IsSupported(kind, d.Context)
}

// ProtectionCapability は保護方式ごとの利用可否を表す。
type ProtectionCapability struct {
	Kind      ProtectionKind
	Supported bool
}

// Capabilities は全保護方式の利用可否を宣言順で返す。
func (d *Device) Capabilities() []ProtectionCapability {
	caps := make([]ProtectionCapability, 0, len(protectionKinds))
	for _, k := range protectionKinds {
		ok, _ := IsSupported(k, d.Context)
		caps = append(caps, ProtectionCapability{Kind: k, Supported: ok})
	}
	return caps
}
