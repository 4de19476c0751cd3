package git

import (
	"fmt"
	"os"
	"path/filepath"
)

// Credential selects the SSH wrapper used for git network operations. A nil
// *Credential means the ambient environment is used unchanged.
type Credential struct {
	// Name is the connection name the credential was registered under.
	Name string

	// WrapperPath is the path of the executable wrapper script git invokes
	// in place of ssh.
	WrapperPath string
}

// Env returns the environment variables that direct git at the wrapper.
func (c *Credential) Env() []string {
	if c == nil || c.WrapperPath == "" {
		return nil
	}
	return []string{"GIT_SSH=" + c.WrapperPath}
}

// WriteSSHWrapper writes an executable wrapper script under root that runs
// ssh with the given private key, and returns a Credential pointing at it.
// One wrapper exists per named connection.
func WriteSSHWrapper(root, connectionName, keyPath string) (*Credential, error) {
	name := filepath.Join(root, ".ssh_wrapper_"+connectionName)
	body := fmt.Sprintf("#!/bin/bash\nssh -i %s $@\n", keyPath)
	if err := os.WriteFile(name, []byte(body), 0o755); err != nil {
		return nil, fmt.Errorf("failed to write ssh wrapper for connection %s: %w", connectionName, err)
	}
	return &Credential{Name: connectionName, WrapperPath: name}, nil
}
