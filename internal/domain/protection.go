package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultLockScreenTimeout は画面ロック保護のデフォルト有効期間（秒）。
const DefaultLockScreenTimeout = 60

// MinSecureAPILevel はハードウェア連動の鍵無効化が導入されたOS APIレベル。
// 指紋保護と画面ロック保護はこのレベル以上でのみ利用できる。
const MinSecureAPILevel = 23

// MaxPasswordBytes はパスワード保護で受け付けるパスワードの最大バイト数（bcryptの上限）。
const MaxPasswordBytes = 72

// ProtectionKind は鍵を端末に保存する際の保護方式を表す。
// 宣言順は永続化済みレコードの序数と一致するため変更してはならない。
type ProtectionKind int

const (
	// ProtectionNone は保護なし。
	ProtectionNone ProtectionKind = iota
	// ProtectionFingerprint は指紋認証による保護。
	ProtectionFingerprint
	// ProtectionLockScreen は画面ロック解除後の一定時間のみ利用可能な保護。
	ProtectionLockScreen
	// ProtectionPassword はパスワードによる保護。
	ProtectionPassword
)

var protectionKinds = [...]ProtectionKind{
	ProtectionNone,
	ProtectionFingerprint,
	ProtectionLockScreen,
	ProtectionPassword,
}

var protectionKindNames = [...]string{
	"NONE",
	"FINGERPRINT",
	"LOCK_SCREEN",
	"PASSWORD",
}

// ProtectionKinds は全保護方式を宣言順で返す。
func ProtectionKinds() []ProtectionKind {
	kinds := make([]ProtectionKind, len(protectionKinds))
	copy(kinds, protectionKinds[:])
	return kinds
}

// KindFromOrdinal は序数から保護方式を取得する。
func KindFromOrdinal(ordinal int) (ProtectionKind, error) {
	if ordinal < 0 || ordinal >= len(protectionKinds) {
		return 0, fmt.Errorf("%w: ordinal not found %d", ErrInvalidArgument, ordinal)
	}
	return protectionKinds[ordinal], nil
}

// ParseProtectionKind は名前から保護方式を取得する。大文字小文字は区別しない。
func ParseProtectionKind(name string) (ProtectionKind, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for i, n := range protectionKindNames {
		if n == upper {
			return protectionKinds[i], nil
		}
	}
	return 0, fmt.Errorf("%w: unknown protection kind %q", ErrInvalidArgument, name)
}

// Ordinal は宣言順の序数を返す。
func (k ProtectionKind) Ordinal() int {
	return int(k)
}

// Valid は既知の保護方式かどうかを返す。
func (k ProtectionKind) Valid() bool {
	return k >= 0 && int(k) < len(protectionKinds)
}

func (k ProtectionKind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("ProtectionKind(%d)", int(k))
	}
	return protectionKindNames[k]
}

// MarshalJSON は保護方式を名前でエンコードする。
func (k ProtectionKind) MarshalJSON() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: unhandled protection kind %d", ErrInvalidState, int(k))
	}
	return json.Marshal(k.String())
}

// UnmarshalJSON は名前から保護方式をデコードする。
func (k *ProtectionKind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("%w: protection kind must be a string", ErrInvalidArgument)
	}
	parsed, err := ParseProtectionKind(name)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// DeviceContext は端末から報告された保護機能の前提条件を表す。
type DeviceContext struct {
	APILevel                     int
	FingerprintPermissionGranted bool
	FingerprintHardwareDetected  bool
}

// IsSupported は端末が指定の保護方式を利用できるかを判定する。
func IsSupported(kind ProtectionKind, dc DeviceContext) (bool, error) {
	switch kind {
	case ProtectionNone, ProtectionPassword:
		return true, nil
	case ProtectionLockScreen:
		return dc.APILevel >= MinSecureAPILevel, nil
	case ProtectionFingerprint:
		return dc.APILevel >= MinSecureAPILevel &&
			dc.FingerprintPermissionGranted &&
			dc.FingerprintHardwareDetected, nil
	default:
		return false, fmt.Errorf("%w: unhandled protection type: %s", ErrInvalidState, kind)
	}
}

// SupportedKinds は端末が利用できる保護方式を宣言順で返す。
func SupportedKinds(dc DeviceContext) []ProtectionKind {
	var kinds []ProtectionKind
	for _, k := range protectionKinds {
		// 宣言済みの値のみを渡すためエラーは発生しない
		if ok, _ := IsSupported(k, dc); ok {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// KeyProtection は鍵に要求される保護方式と方式固有の値を保持する。
// ゼロ値は保護なしを表す。生成後に変更されることはない。
type KeyProtection struct {
	kind            ProtectionKind
	validitySeconds int
	password        string
}

// WithNone は保護なしのポリシーを返す。
func WithNone() KeyProtection {
	return KeyProtection{kind: ProtectionNone}
}

// WithFingerprint は指紋保護のポリシーを返す。
func WithFingerprint() KeyProtection {
	return KeyProtection{kind: ProtectionFingerprint}
}

// WithLockScreen はデフォルト有効期間の画面ロック保護ポリシーを返す。
func WithLockScreen() KeyProtection {
	return WithLockScreenTimeout(DefaultLockScreenTimeout)
}

// WithLockScreenTimeout は有効期間を指定した画面ロック保護ポリシーを返す。
func WithLockScreenTimeout(timeoutSeconds int) KeyProtection {
	return KeyProtection{kind: ProtectionLockScreen, validitySeconds: timeoutSeconds}
}

// WithPassword はパスワード保護のポリシーを返す。
func WithPassword(password string) KeyProtection {
	return KeyProtection{kind: ProtectionPassword, password: password}
}

// FromKind は保護方式に対応するデフォルトのポリシーを返す。
func FromKind(kind ProtectionKind) (KeyProtection, error) {
	switch kind {
	case ProtectionNone:
		return WithNone(), nil
	case ProtectionFingerprint:
		return WithFingerprint(), nil
	case ProtectionLockScreen:
		return WithLockScreen(), nil
	case ProtectionPassword:
		return WithPassword(""), nil
	default:
		return KeyProtection{}, fmt.Errorf("%w: unhandled protection kind: %s", ErrInvalidState, kind)
	}
}

// Kind は保護方式を返す。
func (p KeyProtection) Kind() ProtectionKind {
	return p.kind
}

// Password はパスワード保護のパスワードを返す。
func (p KeyProtection) Password() (string, error) {
	if p.kind != ProtectionPassword {
		return "", fmt.Errorf("%w: password on %s protection", ErrWrongVariant, p.kind)
	}
	return p.password, nil
}

// ValidUntilSecondsSinceUnlock は画面ロック解除後に鍵が利用可能な秒数を返す。
func (p KeyProtection) ValidUntilSecondsSinceUnlock() (int, error) {
	if p.kind != ProtectionLockScreen {
		return 0, fmt.Errorf("%w: validity window on %s protection", ErrWrongVariant, p.kind)
	}
	return p.validitySeconds, nil
}

// Validate はポリシーの値を検証する。
func (p KeyProtection) Validate() error {
	switch p.kind {
	case ProtectionNone, ProtectionFingerprint:
		return nil
	case ProtectionLockScreen:
		if p.validitySeconds <= 0 {
			return fmt.Errorf("%w: lock screen timeout must be positive, got %d", ErrInvalidArgument, p.validitySeconds)
		}
		return nil
	case ProtectionPassword:
		if p.password == "" {
			return fmt.Errorf("%w: password must not be empty", ErrInvalidArgument)
		}
		if len(p.password) > MaxPasswordBytes {
			return fmt.Errorf("%w: password must be at most %d bytes", ErrInvalidArgument, MaxPasswordBytes)
		}
		return nil
	default:
		return fmt.Errorf("%w: unhandled protection kind: %s", ErrInvalidState, p.kind)
	}
}

// String はパスワードを含めずにポリシーを表現する。
func (p KeyProtection) String() string {
	if p.kind == ProtectionPassword {
		return "(Known) " + p.kind.String()
	}
	return p.kind.String()
}
