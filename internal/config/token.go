package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"
)

// RefreshTokenEnvVar supplies the refresh token without a flag or file
const RefreshTokenEnvVar = "HISENSE_REFRESH_TOKEN"

// ErrNoRefreshToken is returned when no source yields a refresh token
var ErrNoRefreshToken = errors.New("no refresh token: pass --token-file, set " + RefreshTokenEnvVar + " or configure token_file")

// TokenSource describes where ResolveRefreshToken may look
type TokenSource struct {
	// FlagFile is the --token-file value
	FlagFile string
	// Device is the registry entry, whose TokenFile is consulted
	Device *Device
	// Prompt allows reading the token from an interactive terminal
	Prompt bool
}

// ResolveRefreshToken finds the refresh token, in order: --token-file,
// HISENSE_REFRESH_TOKEN, the device's token_file, an interactive prompt.
func ResolveRefreshToken(src TokenSource) (string, error) {
	if src.FlagFile != "" {
		return ReadTokenFile(src.FlagFile)
	}
	if tok := strings.TrimSpace(os.Getenv(RefreshTokenEnvVar)); tok != "" {
		return tok, nil
	}
	if src.Device != nil && src.Device.TokenFile != "" {
		return ReadTokenFile(src.Device.TokenFile)
	}
	if src.Prompt && term.IsTerminal(int(os.Stdin.Fd())) {
		return promptToken(os.Stdin, os.Stderr)
	}
	return "", ErrNoRefreshToken
}

// ReadTokenFile reads a token from the first non-empty, non-comment line of a file.
// A leading ~/ is expanded to the home directory.
func ReadTokenFile(path string) (string, error) {
	expanded, err := expandHome(path)
	if err != nil {
		return "", err
	}
	f, err := os.Open(expanded)
	if err != nil {
		return "", fmt.Errorf("failed to open token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	tok, err := firstTokenLine(f)
	if err != nil {
		return "", fmt.Errorf("token file %s: %w", path, err)
	}
	return tok, nil
}

func firstTokenLine(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return line, nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("no token found")
}

func promptToken(in *os.File, out io.Writer) (string, error) {
	_, _ = fmt.Fprint(out, "Refresh token: ")
	raw, err := term.ReadPassword(int(in.Fd()))
	_, _ = fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("failed to read refresh token: %w", err)
	}
	tok := strings.TrimSpace(string(raw))
	if tok == "" {
		return "", ErrNoRefreshToken
	}
	return tok, nil
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, path[2:]), nil
}
