package infra

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"key-protection-service/internal/domain"
)

// BcryptHasher はパスワード保護の鍵に付与する検証用ハッシュを扱う。
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher はコストを指定してBcryptHasherを生成する。
// 範囲外のコストはbcrypt.DefaultCostに置き換える。
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash はパスワードのハッシュを生成する。
func (h *BcryptHasher) Hash(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, fmt.Errorf("%w: password must be at most %d bytes", domain.ErrInvalidArgument, domain.MaxPasswordBytes)
	}
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	return hash, nil
}

// Compare はハッシュとパスワードを照合する。
// 不一致の場合は domain.ErrPasswordMismatch を返す。
func (h *BcryptHasher) Compare(hash []byte, password string) error {
	err := bcrypt.CompareHashAndPassword(hash, []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return domain.ErrPasswordMismatch
	}
	if err != nil {
		return fmt.Errorf("comparing password: %w", err)
	}
	return nil
}
