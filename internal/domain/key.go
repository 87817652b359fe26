// Package domain はドメインモデルとビジネスルールを定義する。
package domain

import "time"

// KeyStatus は暗号鍵のステータスを表す。
type KeyStatus string

const (
	// KeyStatusActive は有効な鍵を表す。
	KeyStatusActive KeyStatus = "active"
	// KeyStatusDisabled は無効化された鍵を表す。
	KeyStatusDisabled KeyStatus = "disabled"
)

// EncryptionKey は暗号鍵エンティティを表す。
type EncryptionKey struct {
	ID              string
	TenantID        string
	Generation      uint
	EncryptedKey    []byte
	Status          KeyStatus
	ProtectionKind  ProtectionKind
	ValiditySeconds int    // 画面ロック保護のみ
	PasswordHash    []byte // パスワード保護のみ（bcrypt）
	DeviceID        string // 端末未指定の場合は空
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// KeyMetadata は暗号鍵のメタデータを表す（平文鍵を含まない）。
type KeyMetadata struct {
	TenantID        string
	Generation      uint
	Status          KeyStatus
	ProtectionKind  ProtectionKind
	ValiditySeconds int
	DeviceID        string
	CreatedAt       time.Time
}

// Metadata はエンティティからメタデータを生成する。
func (k *EncryptionKey) Metadata() *KeyMetadata {
	return &KeyMetadata{
		TenantID:        k.TenantID,
		Generation:      k.Generation,
		Status:          k.Status,
		ProtectionKind:  k.ProtectionKind,
		ValiditySeconds: k.ValiditySeconds,
		DeviceID:        k.DeviceID,
		CreatedAt:       k.CreatedAt,
	}
}

// Key は復号済みの暗号鍵を表す。
type Key struct {
	TenantID       string
	Generation     uint
	ProtectionKind ProtectionKind
	Key            []byte // 平文の鍵（Base64エンコード前）
}
