// Command totpsetup creates the shared TOTP secret for check-in codes, or
// prints the current code for an existing secret.
//
//	totpsetup --account "Kantor Pusat" --qr totp.png
//	totpsetup --secret JBSWY3DPEHPK3PXP
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dalemusser/strataattend/internal/app/system/otp"
	"github.com/spf13/pflag"
)

func main() {
	fs := pflag.NewFlagSet("totpsetup", pflag.ExitOnError)
	account := fs.String("account", "attendance", "account name shown in the authenticator app")
	secret := fs.String("secret", "", "existing base32 secret; prints its current code instead of generating")
	qrPath := fs.String("qr", "", "write a QR code PNG of the provisioning URL to this path")
	qrSize := fs.Int("qr-size", 256, "QR code width and height in pixels")
	_ = fs.Parse(os.Args[1:])

	if err := run(*account, *secret, *qrPath, *qrSize); err != nil {
		fmt.Fprintln(os.Stderr, "totpsetup:", err)
		os.Exit(1)
	}
}

func run(account, secret, qrPath string, qrSize int) error {
	if secret != "" {
		t, err := otp.NewTOTP(secret, 0)
		if err != nil {
			return err
		}
		code, err := t.Code()
		if err != nil {
			return err
		}
		fmt.Printf("Current code: %s (valid about %ds)\n", code, 30-time.Now().Unix()%30)
		return nil
	}

	key, err := otp.GenerateKey(account)
	if err != nil {
		return err
	}
	fmt.Println("Secret:", key.Secret)
	fmt.Println("URL:   ", key.URL)
	fmt.Println()
	fmt.Println("Set STRATAATTEND_TOTP_SECRET to the secret and add the URL to an authenticator app.")

	if qrPath != "" {
		png, err := otp.QRCodePNG(key.URL, qrSize)
		if err != nil {
			return err
		}
		if err := os.WriteFile(qrPath, png, 0o600); err != nil {
			return err
		}
		fmt.Println("QR code written to", qrPath)
	}
	return nil
}
