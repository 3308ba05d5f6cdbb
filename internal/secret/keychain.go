package secret

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultKeychainService is the keychain service postdesk items live under.
const DefaultKeychainService = "postdesk-api"

// exit status of `security` when the item does not exist
const keychainNotFound = 44

// securityRunner runs the macOS `security` tool and reports its combined
// output and exit status. err is set only when the tool could not run.
type securityRunner func(ctx context.Context, args ...string) (out []byte, status int, err error)

// KeychainStore keeps secrets in the macOS login keychain, one generic
// password per key under a single service name.
type KeychainStore struct {
	service string
	timeout time.Duration
	run     securityRunner
}

// NewKeychainStore returns a store for service; empty means
// DefaultKeychainService.
func NewKeychainStore(service string) *KeychainStore {
	if service == "" {
		service = DefaultKeychainService
	}
	return &KeychainStore{service: service, timeout: 5 * time.Second, run: runSecurity}
}

func runSecurity(ctx context.Context, args ...string) ([]byte, int, error) {
	out, err := exec.CommandContext(ctx, "security", args...).CombinedOutput()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return out, exitErr.ExitCode(), nil
	}
	if err != nil {
		return out, -1, err
	}
	return out, 0, nil
}

func (k *KeychainStore) exec(op string, args ...string) ([]byte, int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), k.timeout)
	defer cancel()
	out, status, err := k.run(ctx, args...)
	if err != nil {
		return nil, status, fmt.Errorf("keychain %s: %w", op, err)
	}
	return out, status, nil
}

// Set stores value under key, replacing an existing item.
func (k *KeychainStore) Set(key string, value []byte) error {
	out, status, err := k.exec("set", "add-generic-password",
		"-a", key,
		"-s", k.service,
		"-w", string(value),
		"-U",
	)
	if err != nil {
		return err
	}
	if status != 0 {
		return fmt.Errorf("keychain set %s: %s (status %d)", key, strings.TrimSpace(string(out)), status)
	}
	return nil
}

// Get returns nil and no error when key has no item.
func (k *KeychainStore) Get(key string) ([]byte, error) {
	out, status, err := k.exec("get", "find-generic-password",
		"-a", key,
		"-s", k.service,
		"-w",
	)
	switch {
	case err != nil:
		return nil, err
	case status == keychainNotFound:
		return nil, nil
	case status != 0:
		return nil, fmt.Errorf("keychain get %s: %s (status %d)", key, strings.TrimSpace(string(out)), status)
	}
	return []byte(strings.TrimRight(string(out), "\n")), nil
}

// Delete removes key. A missing item is not an error.
func (k *KeychainStore) Delete(key string) error {
	out, status, err := k.exec("delete", "delete-generic-password",
		"-a", key,
		"-s", k.service,
	)
	if err != nil {
		return err
	}
	if status != 0 && status != keychainNotFound {
		return fmt.Errorf("keychain delete %s: %s (status %d)", key, strings.TrimSpace(string(out)), status)
	}
	return nil
}
