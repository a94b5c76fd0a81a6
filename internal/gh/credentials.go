package gh

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Credential resolution order: GH_USERNAME/GH_TOKEN environment variables,
// then the plain-text credentials file written by `sdcli gh auth`. The file
// holds two lines, username then token, and is owner-readable only.

// CredentialsPath returns the credentials file location under the base
// directory.
func CredentialsPath(baseDir string) string {
	return filepath.Join(baseDir, "credentials")
}

// ResolveCredentials returns the username/token pair to authenticate with.
func ResolveCredentials(baseDir string) (username, token string, err error) {
	username, token = os.Getenv("GH_USERNAME"), os.Getenv("GH_TOKEN")
	if username != "" && token != "" {
		return username, token, nil
	}

	data, err := os.ReadFile(CredentialsPath(baseDir))
	if err != nil {
		return "", "", fmt.Errorf("no GitHub credentials: run `sdcli gh auth` or set GH_USERNAME and GH_TOKEN")
	}

	lines := strings.SplitN(strings.TrimSpace(string(data)), "\n", 2)
	if len(lines) != 2 {
		return "", "", fmt.Errorf("malformed credentials file at %s, run `sdcli gh auth` again", CredentialsPath(baseDir))
	}
	return strings.TrimSpace(lines[0]), strings.TrimSpace(lines[1]), nil
}

// SaveCredentials writes the username/token pair, replacing anything saved
// before.
func SaveCredentials(baseDir, username, token string) error {
	path := CredentialsPath(baseDir)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating credentials directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(username+"\n"+token+"\n"), 0600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	return nil
}
