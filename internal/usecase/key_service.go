// Package usecase はアプリケーションのユースケースを実装する。
package usecase

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"

	"key-protection-service/internal/domain"
)

const keySize = 32 // AES-256 = 256 bits = 32 bytes

// KeyRepository はデータアクセスのインターフェース。
type KeyRepository interface {
	ExistsByTenantID(ctx context.Context, tenantID string) (bool, error)
	Create(ctx context.Context, key *domain.EncryptionKey) error
	FindByTenantIDAndGeneration(ctx context.Context, tenantID string, generation uint) (*domain.EncryptionKey, error)
	FindLatestActiveByTenantID(ctx context.Context, tenantID string) (*domain.EncryptionKey, error)
	FindAllByTenantID(ctx context.Context, tenantID string) ([]*domain.EncryptionKey, error)
	GetMaxGeneration(ctx context.Context, tenantID string) (uint, error)
	UpdateStatus(ctx context.Context, id string, status domain.KeyStatus) error
}

// KMSClient は暗号化/復号のインターフェース。
type KMSClient interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

// PasswordHasher はパスワード保護の検証用ハッシュを扱うインターフェース。
type PasswordHasher interface {
	Hash(password string) ([]byte, error)
	Compare(hash []byte, password string) error
}

// CreateKeyInput は鍵生成・ローテーション時の保護指定。
type CreateKeyInput struct {
	Protection domain.KeyProtection
	DeviceID   string // 指定時は端末の対応可否を検証する
}

// Unlock は保護された鍵を取り出す際に提示する値。
type Unlock struct {
	Password string
}

// KeyService は暗号鍵に関するビジネスロジックを提供する。
type KeyService struct {
	repo      KeyRepository
	devices   DeviceRepository
	kmsClient KMSClient
	hasher    PasswordHasher
}

// NewKeyService は新しいKeyServiceを生成する。
func NewKeyService(repo KeyRepository, devices DeviceRepository, kmsClient KMSClient, hasher PasswordHasher) *KeyService {
	return &KeyService{
		repo:      repo,
		devices:   devices,
		kmsClient: kmsClient,
		hasher:    hasher,
	}
}

// generateAESKey はAES-256鍵を生成する。
func generateAESKey() ([]byte, error) {
	key := make([]byte, keySize)
	_, err := rand.Read(key)
	if err != nil {
		return nil, fmt.Errorf("generating random key: %w", err)
	}
	return key, nil
}

// applyProtection は保護ポリシーを検証し、鍵エンティティに反映する。
func (s *KeyService) applyProtection(ctx context.Context, tenantID string, in CreateKeyInput, key *domain.EncryptionKey) error {
	p := in.Protection
	if err := p.Validate(); err != nil {
		return err
	}

	if in.DeviceID != "" {
		device, err := s.devices.FindByTenantIDAndID(ctx, tenantID, in.DeviceID)
		if err != nil {
			return fmt.Errorf("finding device: %w", err)
		}
		if device == nil {
			return domain.ErrDeviceNotFound
		}
		ok, err := device.Supports(p.Kind())
		if err != nil {
			return err
		}
		if !ok {
			slog.WarnContext(ctx, "protection not supported by device",
				"tenant_id", tenantID,
				"device_id", device.ID,
				"protection", p.Kind().String(),
				"api_level", device.Context.APILevel,
			)
			return fmt.Errorf("%w: %s on device %s", domain.ErrProtectionUnsupported, p.Kind(), device.ID)
		}
		key.DeviceID = device.ID
	}

	key.ProtectionKind = p.Kind()
	switch p.Kind() {
	case domain.ProtectionLockScreen:
		sec, err := p.ValidUntilSecondsSinceUnlock()
		if err != nil {
			return err
		}
		key.ValiditySeconds = sec
	case domain.ProtectionPassword:
		pw, err := p.Password()
		if err != nil {
			return err
		}
		hash, err := s.hasher.Hash(pw)
		if err != nil {
			return err
		}
		key.PasswordHash = hash
	}
	return nil
}

// newProtectedKey は保護ポリシーを適用した新しい世代の鍵を生成・保存する。
func (s *KeyService) newProtectedKey(ctx context.Context, tenantID string, generation uint, in CreateKeyInput) (*domain.KeyMetadata, error) {
	key := &domain.EncryptionKey{
		TenantID:   tenantID,
		Generation: generation,
		Status:     domain.KeyStatusActive,
	}
	if err := s.applyProtection(ctx, tenantID, in, key); err != nil {
		return nil, err
	}

	// AES-256鍵を生成
	plainKey, err := generateAESKey()
	if err != nil {
		return nil, err
	}

	// KMSで暗号化
	encryptedKey, err := s.kmsClient.Encrypt(ctx, plainKey)
	if err != nil {
		return nil, fmt.Errorf("encrypting key: %w", err)
	}
	key.EncryptedKey = encryptedKey

	if err := s.repo.Create(ctx, key); err != nil {
		return nil, fmt.Errorf("creating key: %w", err)
	}

	return key.Metadata(), nil
}

// CreateKey は指定されたテナントに対して新しい暗号鍵を生成する。
func (s *KeyService) CreateKey(ctx context.Context, tenantID string, in CreateKeyInput) (*domain.KeyMetadata, error) {
	exists, err := s.repo.ExistsByTenantID(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("checking existing key: %w", err)
	}
	if exists {
		return nil, domain.ErrKeyAlreadyExists
	}

	return s.newProtectedKey(ctx, tenantID, 1, in)
}

// RotateKey は指定されたテナントに対して新しい世代の鍵を生成する。
func (s *KeyService) RotateKey(ctx context.Context, tenantID string, in CreateKeyInput) (*domain.KeyMetadata, error) {
	maxGen, err := s.repo.GetMaxGeneration(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("getting max generation: %w", err)
	}
	if maxGen == 0 {
		return nil, domain.ErrKeyNotFound
	}

	return s.newProtectedKey(ctx, tenantID, maxGen+1, in)
}

// unlock は保護方式に応じて鍵の取り出しを許可するか判定する。
// 指紋・画面ロックの判定は端末側で行われるため、ここではパスワードのみ検証する。
func (s *KeyService) unlock(key *domain.EncryptionKey, u Unlock) error {
	switch key.ProtectionKind {
	case domain.ProtectionNone, domain.ProtectionFingerprint, domain.ProtectionLockScreen:
		return nil
	case domain.ProtectionPassword:
		if u.Password == "" {
			return domain.ErrPasswordRequired
		}
		return s.hasher.Compare(key.PasswordHash, u.Password)
	default:
		return fmt.Errorf("%w: unhandled protection kind: %s", domain.ErrInvalidState, key.ProtectionKind)
	}
}

// release は保護を検証した上で鍵を復号する。
func (s *KeyService) release(ctx context.Context, key *domain.EncryptionKey, u Unlock) (*domain.Key, error) {
	if err := s.unlock(key, u); err != nil {
		return nil, err
	}

	plainKey, err := s.kmsClient.Decrypt(ctx, key.EncryptedKey)
	if err != nil {
		return nil, fmt.Errorf("decrypting key: %w", err)
	}

	return &domain.Key{
		TenantID:       key.TenantID,
		Generation:     key.Generation,
		ProtectionKind: key.ProtectionKind,
		Key:            plainKey,
	}, nil
}

// GetCurrentKey は指定されたテナントの現在有効な鍵を取得する。
func (s *KeyService) GetCurrentKey(ctx context.Context, tenantID string, u Unlock) (*domain.Key, error) {
	key, err := s.repo.FindLatestActiveByTenantID(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("finding current key: %w", err)
	}
	if key == nil {
		return nil, domain.ErrKeyNotFound
	}
	return s.release(ctx, key, u)
}

// GetKeyByGeneration は指定されたテナント・世代の鍵を取得する。
func (s *KeyService) GetKeyByGeneration(ctx context.Context, tenantID string, generation uint, u Unlock) (*domain.Key, error) {
	key, err := s.repo.FindByTenantIDAndGeneration(ctx, tenantID, generation)
	if err != nil {
		return nil, fmt.Errorf("finding key: %w", err)
	}
	if key == nil {
		return nil, domain.ErrKeyNotFound
	}
	if key.Status == domain.KeyStatusDisabled {
		return nil, domain.ErrKeyDisabled
	}
	return s.release(ctx, key, u)
}

// ListKeys は指定されたテナントの全世代の鍵メタデータを取得する。
func (s *KeyService) ListKeys(ctx context.Context, tenantID string) ([]*domain.KeyMetadata, error) {
	keys, err := s.repo.FindAllByTenantID(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("finding keys: %w", err)
	}

	metadata := make([]*domain.KeyMetadata, len(keys))
	for i, k := range keys {
		metadata[i] = k.Metadata()
	}
	return metadata, nil
}

// DisableKey は指定されたテナント・世代の鍵を無効化する。
func (s *KeyService) DisableKey(ctx context.Context, tenantID string, generation uint) error {
	key, err := s.repo.FindByTenantIDAndGeneration(ctx, tenantID, generation)
	if err != nil {
		return fmt.Errorf("finding key: %w", err)
	}
	if key == nil {
		return domain.ErrKeyNotFound
	}
	if key.Status == domain.KeyStatusDisabled {
		return domain.ErrKeyAlreadyDisabled
	}

	if err := s.repo.UpdateStatus(ctx, key.ID, domain.KeyStatusDisabled); err != nil {
		return fmt.Errorf("updating status: %w", err)
	}

	return nil
}
