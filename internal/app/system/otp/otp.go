// Package otp wraps time-based one-time codes (RFC 6238) used to gate check-ins.
//
// The attendance service treats verification as an opaque yes/no answer; it never
// branches on why a code was rejected.
package otp

import (
	"bytes"
	"errors"
	"image/png"
	"regexp"
	"strings"
	"time"

	potp "github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// Issuer is the label shown in authenticator apps.
const Issuer = "Attendance Bot"

var codeRE = regexp.MustCompile(`^\d{6}$`)

// ErrSecretTooShort is returned by NewTOTP for secrets below 16 base32 characters.
var ErrSecretTooShort = errors.New("totp secret must be at least 16 characters")

// Verifier checks a one-time code.
type Verifier interface {
	Verify(code string) bool
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(code string) bool

func (f VerifierFunc) Verify(code string) bool { return f(code) }

// TOTP verifies six-digit SHA1 codes with a 30 second period against one shared secret.
type TOTP struct {
	secret string
	skew   uint
	now    func() time.Time
}

// NewTOTP returns a TOTP verifier. skew is the number of periods accepted on either
// side of the current one.
func NewTOTP(secret string, skew uint) (*TOTP, error) {
	secret = strings.ToUpper(strings.TrimSpace(secret))
	if len(secret) < 16 {
		return nil, ErrSecretTooShort
	}
	return &TOTP{secret: secret, skew: skew, now: time.Now}, nil
}

// WithClock overrides the verifier's time source.
func (t *TOTP) WithClock(now func() time.Time) *TOTP {
	t.now = now
	return t
}

func (t *TOTP) opts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    30,
		Skew:      t.skew,
		Digits:    potp.DigitsSix,
		Algorithm: potp.AlgorithmSHA1,
	}
}

// Verify reports whether code is valid for the current time step.
func (t *TOTP) Verify(code string) bool {
	if !ValidFormat(code) {
		return false
	}
	ok, err := totp.ValidateCustom(code, t.secret, t.now(), t.opts())
	if err != nil {
		return false
	}
	return ok
}

// Code returns the code for the current time step.
func (t *TOTP) Code() (string, error) {
	return totp.GenerateCodeCustom(t.secret, t.now(), t.opts())
}

// ValidFormat reports whether code is exactly six ASCII digits.
func ValidFormat(code string) bool {
	return codeRE.MatchString(code)
}

// Key is a freshly generated shared secret.
type Key struct {
	Secret string
	URL    string
}

// GenerateKey creates a new secret and its otpauth:// provisioning URL.
func GenerateKey(account string) (Key, error) {
	k, err := totp.Generate(totp.GenerateOpts{
		Issuer:      Issuer,
		AccountName: account,
		Digits:      potp.DigitsSix,
		Algorithm:   potp.AlgorithmSHA1,
	})
	if err != nil {
		return Key{}, err
	}
	return Key{Secret: k.Secret(), URL: k.URL()}, nil
}

// QRCodePNG renders an otpauth:// URL as a size×size PNG for scanning.
func QRCodePNG(url string, size int) ([]byte, error) {
	k, err := potp.NewKeyFromURL(url)
	if err != nil {
		return nil, err
	}
	img, err := k.Image(size, size)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
