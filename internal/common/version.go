package common

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Set by -ldflags "-X github.com/bobmcallan/stance/internal/common.Version=..."
var (
	Version   = "dev"
	Build     = "unknown"
	GitCommit = "unknown"
)

// GetVersion returns the semantic version string
func GetVersion() string {
	return Version
}

// GetBuild returns the build timestamp
func GetBuild() string {
	return Build
}

// GetGitCommit returns the short git commit hash
func GetGitCommit() string {
	return GitCommit
}

// GetFullVersion returns a formatted version string with all build info
func GetFullVersion() string {
	return fmt.Sprintf("stance %s (build: %s, commit: %s)", Version, Build, GitCommit)
}

// VersionInfo returns the version fields keyed for JSON responses.
func VersionInfo() map[string]string {
	return map[string]string{
		"version": Version,
		"build":   Build,
		"commit":  GitCommit,
	}
}

// LoadVersionFromFile fills any version field still at its default from a
// ".version" file beside the binary, or in the working directory when the
// binary has none (go run, tests).
func LoadVersionFromFile() {
	var dirs []string
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	dirs = append(dirs, ".")

	for _, dir := range dirs {
		f, err := os.Open(filepath.Join(dir, ".version"))
		if err != nil {
			continue
		}
		applyVersionFile(f)
		f.Close()
		return
	}
}

// applyVersionFile reads "key: value" lines; '#' starts a comment.
func applyVersionFile(r io.Reader) {
	fields := map[string]struct {
		target *string
		unset  string
	}{
		"version": {&Version, "dev"},
		"build":   {&Build, "unknown"},
		"commit":  {&GitCommit, "unknown"},
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		field, known := fields[strings.ToLower(strings.TrimSpace(key))]
		if known && *field.target == field.unset {
			*field.target = strings.TrimSpace(val)
		}
	}
}
