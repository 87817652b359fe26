package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("KEYCTL_API_URL", "")
	root := newRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

// lineFields は出力の各行を空白で分割する。
func lineFields(out string) [][]string {
	var rows [][]string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		rows = append(rows, strings.Fields(line))
	}
	return rows
}

func TestProtectionKinds(t *testing.T) {
	out, err := execute(t, "protection", "kinds")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows := lineFields(out)
	want := [][]string{
		{"ORDINAL", "NAME"},
		{"0", "NONE"},
		{"1", "FINGERPRINT"},
		{"2", "LOCK_SCREEN"},
		{"3", "PASSWORD"},
	}
	if len(rows) != len(want) {
		t.Fatalf("want %d rows, got %d: %q", len(want), len(rows), out)
	}
	for i := range want {
		if strings.Join(rows[i], " ") != strings.Join(want[i], " ") {
			t.Errorf("row %d: want %v, got %v", i, want[i], rows[i])
		}
	}
}

func TestProtectionCheck(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want map[string]string
	}{
		{
			name: "legacy device",
			args: []string{"--api-level", "22"},
			want: map[string]string{"NONE": "true", "FINGERPRINT": "false", "LOCK_SCREEN": "false", "PASSWORD": "true"},
		},
		{
			name: "fingerprint without hardware",
			args: []string{"--api-level", "23", "--fingerprint-permission"},
			want: map[string]string{"NONE": "true", "FINGERPRINT": "false", "LOCK_SCREEN": "true", "PASSWORD": "true"},
		},
		{
			name: "single kind",
			args: []string{"--api-level", "30", "--fingerprint-permission", "--fingerprint-hardware", "--protection", "fingerprint"},
			want: map[string]string{"FINGERPRINT": "true"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, append([]string{"protection", "check"}, tt.args...)...)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			got := map[string]string{}
			for _, row := range lineFields(out)[1:] {
				got[row[0]] = row[1]
			}
			if len(got) != len(tt.want) {
				t.Fatalf("want %v, got %v", tt.want, got)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("%s: want %s, got %s", k, v, got[k])
				}
			}
		})
	}
}

func TestProtectionCheck_UnknownKind(t *testing.T) {
	if _, err := execute(t, "protection", "check", "--api-level", "30", "--protection", "IRIS"); err == nil {
		t.Error("want error for unknown protection kind")
	}
}

func TestCreate_SendsProtection(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/tenants/tenant-001/keys" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"tenant_id":"tenant-001","generation":1,"protection":"LOCK_SCREEN"}`))
	}))
	defer srv.Close()

	out, err := execute(t, "--api-url", srv.URL, "create", "--tenant", "tenant-001", "--protection", "lock_screen", "--validity", "120")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["protection"] != "LOCK_SCREEN" {
		t.Errorf("want protection LOCK_SCREEN, got %v", got["protection"])
	}
	if got["validity_seconds"] != float64(120) {
		t.Errorf("want validity_seconds 120, got %v", got["validity_seconds"])
	}
	if !strings.Contains(out, "generation: 1, protection: LOCK_SCREEN") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestCreate_RejectsInvalidFlagsLocally(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	tests := [][]string{
		{"--protection", "FINGERPRINT", "--validity", "30"},
		{"--protection", "NONE", "--password", "x"},
		{"--protection", "PASSWORD"},
		{"--protection", "LOCK_SCREEN", "--validity", "0"},
		{"--protection", "IRIS"},
		{"--protection", "PASSWORD", "--password", strings.Repeat("a", 73)},
	}
	for _, args := range tests {
		base := []string{"--api-url", srv.URL, "create", "--tenant", "tenant-001"}
		if _, err := execute(t, append(base, args...)...); err == nil {
			t.Errorf("%v: want error", args)
		}
	}
	if called {
		t.Error("no request should reach the server")
	}
}

func TestGet_SendsPasswordHeader(t *testing.T) {
	var header string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Get(passwordHeader)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"key":"a2V5"}`))
	}))
	defer srv.Close()

	out, err := execute(t, "--api-url", srv.URL, "get", "--tenant", "tenant-001", "--password", "s3cret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if header != "s3cret" {
		t.Errorf("want password header, got %q", header)
	}
	if strings.TrimSpace(out) != "a2V5" {
		t.Errorf("want key output, got %q", out)
	}
}

func TestGet_ErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code":"PASSWORD_REQUIRED","message":"password is required for this key"}`))
	}))
	defer srv.Close()

	_, err := execute(t, "--api-url", srv.URL, "get", "--tenant", "tenant-001")
	if err == nil || !strings.Contains(err.Error(), "PASSWORD_REQUIRED") {
		t.Errorf("want PASSWORD_REQUIRED error, got %v", err)
	}
}

func TestProtectionCheck_MissingAPILevel(t *testing.T) {
	_, err := execute(t, "protection", "check")
	if err == nil || !strings.Contains(err.Error(), "--api-level") {
		t.Errorf("want --api-level error, got %v", err)
	}
}
