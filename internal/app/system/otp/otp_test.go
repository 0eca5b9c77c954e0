package otp

import (
	"bytes"
	"strings"
	"testing"
	"time"

	potp "github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const testSecret = "JBSWY3DPEHPK3PXPJBSWY3DP"

func codeAt(t *testing.T, at time.Time) string {
	t.Helper()
	code, err := totp.GenerateCodeCustom(testSecret, at, totp.ValidateOpts{
		Period:    30,
		Digits:    potp.DigitsSix,
		Algorithm: potp.AlgorithmSHA1,
	})
	if err != nil {
		t.Fatalf("GenerateCodeCustom() error = %v", err)
	}
	return code
}

func TestNewTOTP_ShortSecret(t *testing.T) {
	if _, err := NewTOTP("ABC", 1); err != ErrSecretTooShort {
		t.Errorf("NewTOTP() error = %v, want ErrSecretTooShort", err)
	}
}

func TestTOTP_Verify(t *testing.T) {
	now := time.Date(2025, 1, 15, 1, 55, 10, 0, time.UTC)
	v, err := NewTOTP(strings.ToLower(testSecret), 1)
	if err != nil {
		t.Fatalf("NewTOTP() error = %v", err)
	}
	v.WithClock(func() time.Time { return now })

	if !v.Verify(codeAt(t, now)) {
		t.Error("Verify() rejected the current code")
	}
	if !v.Verify(codeAt(t, now.Add(-30*time.Second))) {
		t.Error("Verify() rejected the previous step with skew 1")
	}
	if v.Verify(codeAt(t, now.Add(-5*time.Minute))) {
		t.Error("Verify() accepted a stale code")
	}
}

func TestTOTP_VerifyRejectsMalformed(t *testing.T) {
	v, err := NewTOTP(testSecret, 1)
	if err != nil {
		t.Fatalf("NewTOTP() error = %v", err)
	}
	for _, code := range []string{"", "12345", "1234567", "abcdef", "12 456", "１２３４５６"} {
		if v.Verify(code) {
			t.Errorf("Verify(%q) = true, want false", code)
		}
	}
}

func TestTOTP_Code(t *testing.T) {
	now := time.Date(2025, 1, 15, 1, 55, 10, 0, time.UTC)
	v, _ := NewTOTP(testSecret, 0)
	v.WithClock(func() time.Time { return now })

	code, err := v.Code()
	if err != nil {
		t.Fatalf("Code() error = %v", err)
	}
	if code != codeAt(t, now) {
		t.Errorf("Code() = %q, want %q", code, codeAt(t, now))
	}
	if !v.Verify(code) {
		t.Error("Verify(Code()) = false")
	}
}

func TestValidFormat(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"123456", true},
		{"000000", true},
		{"12345", false},
		{"1234567", false},
		{"12a456", false},
		{" 123456", false},
	}
	for _, tt := range tests {
		if got := ValidFormat(tt.code); got != tt.want {
			t.Errorf("ValidFormat(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestGenerateKey(t *testing.T) {
	k, err := GenerateKey("Employee")
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	if len(k.Secret) < 16 {
		t.Errorf("Secret too short: %q", k.Secret)
	}
	if !strings.HasPrefix(k.URL, "otpauth://totp/") {
		t.Errorf("URL = %q, want otpauth://totp/ prefix", k.URL)
	}
	if _, err := NewTOTP(k.Secret, 1); err != nil {
		t.Errorf("generated secret rejected: %v", err)
	}
}

func TestVerifierFunc(t *testing.T) {
	var v Verifier = VerifierFunc(func(code string) bool { return code == "424242" })
	if !v.Verify("424242") || v.Verify("000000") {
		t.Error("VerifierFunc did not delegate")
	}
}

func TestQRCodePNG(t *testing.T) {
	k, err := GenerateKey("Employee")
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	b, err := QRCodePNG(k.URL, 200)
	if err != nil {
		t.Fatalf("QRCodePNG() error = %v", err)
	}
	if !bytes.HasPrefix(b, []byte("\x89PNG")) {
		t.Error("output is not a PNG")
	}
	if _, err := QRCodePNG("not a url\x7f", 200); err == nil {
		t.Error("QRCodePNG(bad url) error = nil")
	}
}
