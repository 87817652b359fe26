package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestFromKind_KindRoundTrip(t *testing.T) {
	for _, k := range ProtectionKinds() {
		p, err := FromKind(k)
		if err != nil {
			t.Fatalf("FromKind(%s): unexpected error: %v", k, err)
		}
		if p.Kind() != k {
			t.Errorf("FromKind(%s).Kind() = %s", k, p.Kind())
		}
	}
}

func TestFromKind_Unknown(t *testing.T) {
	_, err := FromKind(ProtectionKind(7))
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("want ErrInvalidState, got %v", err)
	}
}

func TestKindFromOrdinal(t *testing.T) {
	want := []ProtectionKind{ProtectionNone, ProtectionFingerprint, ProtectionLockScreen, ProtectionPassword}
	for i, w := range want {
		k, err := KindFromOrdinal(i)
		if err != nil {
			t.Fatalf("KindFromOrdinal(%d): unexpected error: %v", i, err)
		}
		if k != w {
			t.Errorf("KindFromOrdinal(%d) = %s, want %s", i, k, w)
		}
		if k.Ordinal() != i {
			t.Errorf("KindFromOrdinal(%d).Ordinal() = %d", i, k.Ordinal())
		}
	}

	for _, i := range []int{-1, 4, 100} {
		if _, err := KindFromOrdinal(i); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("KindFromOrdinal(%d): want ErrInvalidArgument, got %v", i, err)
		}
	}
}

func TestParseProtectionKind(t *testing.T) {
	tests := []struct {
		in      string
		want    ProtectionKind
		wantErr bool
	}{
		{"NONE", ProtectionNone, false},
		{"fingerprint", ProtectionFingerprint, false},
		{" lock_screen ", ProtectionLockScreen, false},
		{"Password", ProtectionPassword, false},
		{"PIN", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseProtectionKind(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidArgument) {
					t.Errorf("want ErrInvalidArgument, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestIsSupported_NoneAndPasswordAlways(t *testing.T) {
	contexts := []DeviceContext{
		{},
		{APILevel: 21},
		{APILevel: 30, FingerprintPermissionGranted: true, FingerprintHardwareDetected: true},
	}
	for _, dc := range contexts {
		for _, k := range []ProtectionKind{ProtectionNone, ProtectionPassword} {
			ok, err := IsSupported(k, dc)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !ok {
				t.Errorf("IsSupported(%s, %+v) = false, want true", k, dc)
			}
		}
	}
}

func TestIsSupported_LockScreen(t *testing.T) {
	tests := []struct {
		apiLevel int
		want     bool
	}{
		{0, false},
		{22, false},
		{23, true},
		{34, true},
	}
	for _, tt := range tests {
		ok, err := IsSupported(ProtectionLockScreen, DeviceContext{APILevel: tt.apiLevel})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok != tt.want {
			t.Errorf("api level %d: got %v, want %v", tt.apiLevel, ok, tt.want)
		}
	}
}

func TestIsSupported_Fingerprint(t *testing.T) {
	tests := []struct {
		name string
		dc   DeviceContext
		want bool
	}{
		{"all conditions met", DeviceContext{APILevel: 23, FingerprintPermissionGranted: true, FingerprintHardwareDetected: true}, true},
		{"old api level", DeviceContext{APILevel: 22, FingerprintPermissionGranted: true, FingerprintHardwareDetected: true}, false},
		{"permission denied", DeviceContext{APILevel: 28, FingerprintPermissionGranted: false, FingerprintHardwareDetected: true}, false},
		{"no hardware", DeviceContext{APILevel: 28, FingerprintPermissionGranted: true, FingerprintHardwareDetected: false}, false},
		{"nothing", DeviceContext{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := IsSupported(ProtectionFingerprint, tt.dc)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ok != tt.want {
				t.Errorf("got %v, want %v", ok, tt.want)
			}
		})
	}
}

func TestIsSupported_Unknown(t *testing.T) {
	_, err := IsSupported(ProtectionKind(-1), DeviceContext{APILevel: 30})
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("want ErrInvalidState, got %v", err)
	}
}

func TestSupportedKinds(t *testing.T) {
	kinds := SupportedKinds(DeviceContext{APILevel: 23})
	want := []ProtectionKind{ProtectionNone, ProtectionLockScreen, ProtectionPassword}
	if len(kinds) != len(want) {
		t.Fatalf("got %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("kinds[%d] = %s, want %s", i, kinds[i], want[i])
		}
	}
}

func TestWithLockScreen_Timeout(t *testing.T) {
	sec, err := WithLockScreen().ValidUntilSecondsSinceUnlock()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sec != 60 {
		t.Errorf("want 60, got %d", sec)
	}

	sec, err = WithLockScreenTimeout(30).ValidUntilSecondsSinceUnlock()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sec != 30 {
		t.Errorf("want 30, got %d", sec)
	}
}

func TestKeyProtection_WrongVariant(t *testing.T) {
	for _, p := range []KeyProtection{WithNone(), WithFingerprint(), WithLockScreen()} {
		if _, err := p.Password(); !errors.Is(err, ErrWrongVariant) {
			t.Errorf("%s: Password(): want ErrWrongVariant, got %v", p, err)
		}
	}
	for _, p := range []KeyProtection{WithNone(), WithFingerprint(), WithPassword("secret")} {
		if _, err := p.ValidUntilSecondsSinceUnlock(); !errors.Is(err, ErrWrongVariant) {
			t.Errorf("%s: ValidUntilSecondsSinceUnlock(): want ErrWrongVariant, got %v", p, err)
		}
	}

	pw, err := WithPassword("secret").Password()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pw != "secret" {
		t.Errorf("want secret, got %s", pw)
	}
}

func TestKeyProtection_ZeroValueIsNone(t *testing.T) {
	var p KeyProtection
	if p.Kind() != ProtectionNone {
		t.Errorf("want NONE, got %s", p.Kind())
	}
}

func TestKeyProtection_Validate(t *testing.T) {
	tests := []struct {
		name    string
		p       KeyProtection
		wantErr bool
	}{
		{"none", WithNone(), false},
		{"fingerprint", WithFingerprint(), false},
		{"lock screen default", WithLockScreen(), false},
		{"lock screen zero", WithLockScreenTimeout(0), true},
		{"lock screen negative", WithLockScreenTimeout(-5), true},
		{"password", WithPassword("p@ss"), false},
		{"empty password", WithPassword(""), true},
		{"password at limit", WithPassword(strings.Repeat("a", MaxPasswordBytes)), false},
		{"password over limit", WithPassword(strings.Repeat("a", MaxPasswordBytes+1)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if tt.wantErr && !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("want ErrInvalidArgument, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestKeyProtection_String(t *testing.T) {
	if s := WithPassword("hunter2").String(); s != "(Known) PASSWORD" {
		t.Errorf("got %q", s)
	}
	if s := WithLockScreen().String(); s != "LOCK_SCREEN" {
		t.Errorf("got %q", s)
	}
}

func TestProtectionKind_JSON(t *testing.T) {
	data, err := json.Marshal(ProtectionLockScreen)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `"LOCK_SCREEN"` {
		t.Errorf("got %s", data)
	}

	var k ProtectionKind
	if err := json.Unmarshal([]byte(`"fingerprint"`), &k); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if k != ProtectionFingerprint {
		t.Errorf("got %s", k)
	}

	if err := json.Unmarshal([]byte(`2`), &k); err == nil {
		t.Error("want error for numeric kind")
	}

	if _, err := json.Marshal(ProtectionKind(9)); err == nil {
		t.Error("want error for unknown kind")
	}
}

func TestDevice_Capabilities(t *testing.T) {
	d := &Device{Context: DeviceContext{APILevel: 29, FingerprintPermissionGranted: true, FingerprintHardwareDetected: false}}
	caps := d.Capabilities()
	if len(caps) != 4 {
		t.Fatalf("want 4 capabilities, got %d", len(caps))
	}
	want := map[ProtectionKind]bool{
		ProtectionNone:        true,
		ProtectionFingerprint: false,
		ProtectionLockScreen:  true,
		ProtectionPassword:    true,
	}
	for _, c := range caps {
		if c.Supported != want[c.Kind] {
			t.Errorf("%s: got %v, want %v", c.Kind, c.Supported, want[c.Kind])
		}
	}
}
