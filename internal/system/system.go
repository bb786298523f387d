// Package system loads the configured systems and keeps the catalog of
// systems that have games.
package system

import (
	"path/filepath"
	"strings"

	"github.com/xxxsen/gamedeck/internal/pathid"
	"github.com/xxxsen/gamedeck/internal/platform"
)

// Definition is one configured system. It satisfies db.System.
type Definition struct {
	name       string
	fullName   string
	root       string
	extensions []string
	command    string
	platforms  []platform.ID
	theme      string
	names      pathid.NameTable
}

func (d *Definition) Name() string { return d.name }
func (d *Definition) FullName() string { return d.fullName }
func (d *Definition) RootPath() string { return d.root }
func (d *Definition) Extensions() []string { return d.extensions }
func (d *Definition) Command() string { return d.command }
func (d *Definition) Platforms() []platform.ID { return d.platforms }
func (d *Definition) Theme() string { return d.theme }

// HasPlatform reports whether the system carries the platform tag id.
func (d *Definition) HasPlatform(id platform.ID) bool {
	for _, p := range d.platforms {
		if p == id {
			return true
		}
	}
	return false
}

// CleanName derives a display name for fileID.
func (d *Definition) CleanName(fileID string) string {
	return pathid.CleanGameName(fileID, d.names)
}

// LaunchCommand expands the command template for the rom at romPath.
func (d *Definition) LaunchCommand(romPath string) string {
	base := filepath.Base(romPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	r := strings.NewReplacer(
		"%ROM_RAW%", romPath,
		"%ROM%", shellQuote(romPath),
		"%BASENAME%", base,
	)
	return r.Replace(d.command)
}

func shellQuote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\n'\"\\$`!&;|<>()[]{}*?#~") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
