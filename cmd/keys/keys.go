// Package keys manages the key that encrypts the Mudrex API secret in the config file.
package keys

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"signalexecutor/cmd/ui"
	"signalexecutor/src/security"
)

var ErrEmptySecret = errors.New("no secret given")

// Generate prints a new credentials key.
func Generate(out io.Writer) error {
	key, err := security.GenerateKey()
	if err != nil {
		return err
	}

	p := ui.New(out)
	p.OK("Generated credentials key")
	p.Blank()
	_, _ = fmt.Fprintln(out, key)
	p.Blank()
	p.Dim("Export it before starting the executor:")
	p.Dim("  export CREDENTIALS_KEY=%s", key)
	return nil
}

// Encrypt seals secret with key. When secret is empty the first line of in is used.
// An empty key falls back to CREDENTIALS_KEY.
func Encrypt(out io.Writer, in io.Reader, key, secret string) error {
	if key == "" {
		key = security.GetConfig().CredentialsKey
	}

	if secret == "" && in != nil {
		sc := bufio.NewScanner(in)
		sc.Buffer(make([]byte, 0, 1024), 1024*1024)
		if sc.Scan() {
			secret = sc.Text()
		}
		if err := sc.Err(); err != nil {
			return fmt.Errorf("read secret: %w", err)
		}
	}
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return ErrEmptySecret
	}

	sealed, err := security.EncryptString(key, secret)
	if err != nil {
		return err
	}

	p := ui.New(out)
	p.OK("Secret encrypted")
	p.Dim("Put this under mudrex.api_secret_encrypted and clear mudrex.api_secret:")
	_, _ = fmt.Fprintln(out, sealed)
	return nil
}
