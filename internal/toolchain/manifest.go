package toolchain

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// manifestNames are the project toolchain manifest filenames, checked in
// order at the workspace root.
var manifestNames = []string{"rust-toolchain.toml", "rust-toolchain"}

var channelLine = regexp.MustCompile(`^\s*channel\s*=\s*"([^"]+)"`)

// ScanManifestChannel extracts the pinned channel from the workspace's
// toolchain manifest. This is deliberately a single-key line scan, not a
// TOML parser: the only fact the resolver needs is the channel string.
// Returns "" when no manifest pins a channel.
func ScanManifestChannel(workspaceRoot string) string {
	for _, name := range manifestNames {
		path := filepath.Join(workspaceRoot, name)
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		channel := scanChannel(f, name)
		f.Close()
		if channel != "" {
			return channel
		}
	}
	return ""
}

func scanChannel(f *os.File, name string) string {
	scanner := bufio.NewScanner(f)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if m := channelLine.FindStringSubmatch(line); m != nil {
			return m[1]
		}
		// The legacy bare manifest holds just the channel on line one.
		if first && name == "rust-toolchain" {
			if trimmed := strings.TrimSpace(line); trimmed != "" && !strings.HasPrefix(trimmed, "[") {
				return trimmed
			}
		}
		first = false
	}
	return ""
}
