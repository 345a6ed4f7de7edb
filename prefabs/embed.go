package prefabs

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

//go:embed scripts/*.tengo
var ScriptsFS embed.FS

//go:embed grids/*.yaml
var GridsFS embed.FS

// DiskDir is checked before the embedded files so specs can be edited and
// hot reloaded without rebuilding.
var DiskDir = "prefabs"

var logger = log.WithPrefix("prefabs")

// SetLogger replaces the package logger. A nil logger is ignored.
func SetLogger(l *log.Logger) {
	if l == nil {
		return
	}
	logger = l
}

func LoadScript(name string) ([]byte, error) {
	clean := cleanScriptPath(name)
	if data, err := os.ReadFile(diskPrefabPath(clean)); err == nil {
		return data, nil
	}
	return ScriptsFS.ReadFile(clean)
}

func Load(name string) ([]byte, error) {
	clean := cleanPrefabPath(name)
	if data, err := os.ReadFile(diskPrefabPath(clean)); err == nil {
		return data, nil
	}
	return GridsFS.ReadFile(clean)
}

// LoadGridSpecFile loads a spec from an explicit path, bypassing the
// embedded set.
func LoadGridSpecFile(path string) (*GridSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("prefabs: load %s: %w", path, err)
	}
	spec, err := ParseGridSpec(data)
	if err != nil {
		return nil, err
	}
	if spec.Name == "" {
		spec.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return spec, nil
}

// GridNames lists the embedded grid specs without extension.
func GridNames() []string {
	entries, err := GridsFS.ReadDir("grids")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !isSpecFile(e.Name()) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
	}
	return names
}

func ModTime(name string) (time.Time, bool) {
	clean := cleanPrefabPath(name)
	info, err := os.Stat(diskPrefabPath(clean))
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

func cleanPrefabPath(path string) string {
	if path == "" {
		return ""
	}
	s := filepath.ToSlash(path)
	if after, ok := strings.CutPrefix(s, "prefabs/"); ok {
		return after
	}
	return s
}

func cleanScriptPath(path string) string {
	if path == "" {
		return ""
	}

	s := filepath.ToSlash(path)

	if after, ok := strings.CutPrefix(s, "prefabs/scripts/"); ok {
		s = after
	}

	if after, ok := strings.CutPrefix(s, "prefabs/"); ok {
		s = after
	}

	if after, ok := strings.CutPrefix(s, "scripts/"); ok {
		s = after
	}

	if !isScriptFile(s) {
		s += ".tengo"
	}

	return fmt.Sprintf("scripts/%s", s)
}

func diskPrefabPath(clean string) string {
	return filepath.Join(DiskDir, filepath.FromSlash(clean))
}
