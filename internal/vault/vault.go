package vault

import (
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const serviceName = "botfleet"

// knownCredentials is the list of credential kinds checked by List():
// the outbound proxy password and the platform shared secret (used to
// sign or authenticate entitlement/ticket calls, when the platform
// requires one).
var knownCredentials = []string{"proxy", "platform"}

// Vault provides secure credential storage using the OS keychain, with
// fallback to environment variables. No credential is ever hardcoded;
// every secret referenced by config flows through here.
type Vault struct{}

// New creates a new Vault instance.
func New() *Vault {
	return &Vault{}
}

// Set stores a credential for the given kind in the OS keychain.
func (v *Vault) Set(kind, secret string) error {
	return keyring.Set(serviceName, kind, secret)
}

// Get retrieves the credential for the given kind. It first checks the
// OS keychain, then falls back to the environment variable
// BOTFLEET_KEY_{UPPER(kind)}.
func (v *Vault) Get(kind string) (string, error) {
	secret, err := keyring.Get(serviceName, kind)
	if err == nil && secret != "" {
		return secret, nil
	}

	envKey := "BOTFLEET_KEY_" + strings.ToUpper(kind)
	if val := os.Getenv(envKey); val != "" {
		return val, nil
	}

	return "", fmt.Errorf("no credential found for kind %q: not in keychain and %s not set", kind, envKey)
}

// Delete removes the credential for the given kind from the OS keychain.
func (v *Vault) Delete(kind string) error {
	return keyring.Delete(serviceName, kind)
}

// List returns the names of known credential kinds that currently have
// a value stored, checking both the keychain and environment variables.
func (v *Vault) List() ([]string, error) {
	var kinds []string

	for _, kind := range knownCredentials {
		secret, err := keyring.Get(serviceName, kind)
		if err == nil && secret != "" {
			kinds = append(kinds, kind)
			continue
		}

		envKey := "BOTFLEET_KEY_" + strings.ToUpper(kind)
		if val := os.Getenv(envKey); val != "" {
			kinds = append(kinds, kind)
		}
	}

	return kinds, nil
}

// ResolveKeyRef parses a key reference and retrieves the corresponding
// credential. Supported formats:
//   - "keyring://botfleet/<kind>" (preferred)
//   - "keychain:botfleet/<kind>" (legacy)
//   - "env:VARIABLE_NAME" (environment variable)
//   - "file:///path/to/key" (plain-text file)
func (v *Vault) ResolveKeyRef(keyRef string) (string, error) {
	// Format 1: keyring://botfleet/<kind>
	if strings.HasPrefix(keyRef, "keyring://") {
		path := strings.TrimPrefix(keyRef, "keyring://")
		parts := strings.SplitN(path, "/", 2)
		if len(parts) != 2 || parts[0] != serviceName || parts[1] == "" {
			return "", fmt.Errorf("invalid key reference format: %q (expected \"keyring://botfleet/<kind>\")", keyRef)
		}
		return v.Get(parts[1])
	}

	// Format 2: keychain:botfleet/<kind> (legacy)
	if strings.HasPrefix(keyRef, "keychain:") {
		path := strings.TrimPrefix(keyRef, "keychain:")
		parts := strings.SplitN(path, "/", 2)
		if len(parts) != 2 || parts[0] != serviceName || parts[1] == "" {
			return "", fmt.Errorf("invalid key reference path: %q (expected \"botfleet/<kind>\")", path)
		}
		return v.Get(parts[1])
	}

	// Format 3: env:VARIABLE_NAME
	if strings.HasPrefix(keyRef, "env:") {
		envVar := strings.TrimPrefix(keyRef, "env:")
		if val := os.Getenv(envVar); val != "" {
			return val, nil
		}
		return "", fmt.Errorf("environment variable %q is not set", envVar)
	}

	// Format 4: file:///path/to/key
	if strings.HasPrefix(keyRef, "file://") {
		filePath := strings.TrimPrefix(keyRef, "file://")
		data, err := os.ReadFile(filePath)
		if err != nil {
			return "", fmt.Errorf("reading key file %q: %w", filePath, err)
		}
		key := strings.TrimSpace(string(data))
		if key == "" {
			return "", fmt.Errorf("key file %q is empty", filePath)
		}
		return key, nil
	}

	return "", fmt.Errorf("invalid key reference format: %q (expected \"keyring://botfleet/<kind>\", \"keychain:botfleet/<kind>\", \"env:VARIABLE_NAME\", or \"file:///path/to/key\")", keyRef)
}
