package registry

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/ssh"
)

// SSH key pairs travel as one vault entry: the private key block
// immediately followed by the public key line.

var ErrNotKeyBundle = errors.New("content is not an SSH key bundle")

const privateKeyEnd = "PRIVATE KEY-----"

// JoinKeyPair combines private and public key material into the bundle
// format stored in the vault.
func JoinKeyPair(private, public []byte) string {
	priv := string(private)
	if !strings.HasSuffix(priv, "\n") {
		priv += "\n"
	}
	return priv + string(public)
}

// SplitKeyBundle separates a vault bundle back into private and public key
// material. The boundary is the end marker of the private key block; the
// public key line follows it.
func SplitKeyBundle(bundle string) (private, public string, err error) {
	idx := strings.LastIndex(bundle, privateKeyEnd)
	if idx < 0 {
		return "", "", ErrNotKeyBundle
	}
	cut := idx + len(privateKeyEnd)
	// Consume the newline terminating the private block.
	rest := bundle[cut:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		cut += nl + 1
	} else {
		return "", "", fmt.Errorf("%w: missing public key after private block", ErrNotKeyBundle)
	}

	private = bundle[:cut]
	public = strings.TrimLeft(bundle[cut:], "\n")
	if strings.TrimSpace(public) == "" {
		return "", "", fmt.Errorf("%w: missing public key after private block", ErrNotKeyBundle)
	}
	return private, public, nil
}

// ValidateKeyBundle checks that a bundle splits cleanly and that the public
// half parses as an authorized_keys line. The private half is only checked
// structurally since it may be passphrase-protected.
func ValidateKeyBundle(bundle string) error {
	private, public, err := SplitKeyBundle(bundle)
	if err != nil {
		return err
	}
	if !strings.Contains(private, "-----BEGIN") {
		return fmt.Errorf("%w: missing private key header", ErrNotKeyBundle)
	}
	if _, _, _, _, err := ssh.ParseAuthorizedKey([]byte(public)); err != nil {
		return fmt.Errorf("invalid public key line: %w", err)
	}
	return nil
}
