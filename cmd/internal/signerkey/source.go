// Package signerkey resolves the private key a driver signs authorizations
// with.
package signerkey

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/term"

	"isoledger/crypto"
)

// Source lazily resolves a hex-encoded private key from an environment
// variable, a key file or by prompting the operator. The key is cached after
// the first successful retrieval.
type Source struct {
	envVar string
	path   string

	once sync.Once
	key  *crypto.PrivateKey
	err  error
}

// NewSource constructs a key source that checks envVar, then the file at
// path, before prompting on the terminal. Either may be empty.
func NewSource(envVar, path string) *Source {
	return &Source{envVar: strings.TrimSpace(envVar), path: strings.TrimSpace(path)}
}

// Get returns the cached key or resolves it on the first call.
func (s *Source) Get() (*crypto.PrivateKey, error) {
	s.once.Do(func() {
		raw, err := s.read()
		if err != nil {
			s.err = err
			return
		}
		s.key, s.err = Parse(raw)
	})
	return s.key, s.err
}

func (s *Source) read() (string, error) {
	if s.envVar != "" {
		if value, ok := os.LookupEnv(s.envVar); ok {
			if strings.TrimSpace(value) == "" {
				return "", fmt.Errorf("%s is set but empty", s.envVar)
			}
			return value, nil
		}
	}
	if s.path != "" {
		data, err := os.ReadFile(s.path)
		if err != nil {
			return "", fmt.Errorf("read signer key: %w", err)
		}
		return string(data), nil
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		if s.envVar != "" {
			return "", fmt.Errorf("signer key required; set %s or run interactively", s.envVar)
		}
		return "", errors.New("signer key required and no terminal available")
	}

	fmt.Fprint(os.Stderr, "Enter signer private key (hex): ")
	bytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read signer key: %w", err)
	}
	return string(bytes), nil
}

// Parse decodes a 0x-prefixed or bare hex private key.
func Parse(raw string) (*crypto.PrivateKey, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, errors.New("signer key cannot be empty")
	}
	if !strings.HasPrefix(trimmed, "0x") && !strings.HasPrefix(trimmed, "0X") {
		trimmed = "0x" + trimmed
	}
	b, err := hexutil.Decode(trimmed)
	if err != nil {
		return nil, fmt.Errorf("decode signer key: %w", err)
	}
	key, err := crypto.PrivateKeyFromBytes(b)
	if err != nil {
		return nil, fmt.Errorf("load signer key: %w", err)
	}
	return key, nil
}
