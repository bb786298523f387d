package system

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/gamedeck/internal/pathid"
	"github.com/xxxsen/gamedeck/internal/platform"
	"go.uber.org/zap"
)

// ConfigMissingError is returned when the systems file does not exist. An
// example file has been written to ExamplePath when it is not empty.
type ConfigMissingError struct {
	Path        string
	ExamplePath string
}

func (e *ConfigMissingError) Error() string {
	if e.ExamplePath == "" {
		return fmt.Sprintf("systems config %s does not exist", e.Path)
	}
	return fmt.Sprintf("systems config %s does not exist, an example has been written at %s", e.Path, e.ExamplePath)
}

// ConfigInvalidError names the system whose definition is unusable.
type ConfigInvalidError struct {
	Path   string
	System string
	Err    error
}

func (e *ConfigInvalidError) Error() string {
	if e.System == "" {
		return fmt.Sprintf("invalid systems config %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("invalid system %q in %s: %v", e.System, e.Path, e.Err)
}

func (e *ConfigInvalidError) Unwrap() error {
	return e.Err
}

type systemListXML struct {
	XMLName xml.Name    `xml:"systemList"`
	Systems []systemXML `xml:"system"`
}

type systemXML struct {
	Name      string `xml:"name" validate:"required,excludesall=/\\"`
	FullName  string `xml:"fullname"`
	Path      string `xml:"path" validate:"required"`
	Extension string `xml:"extension" validate:"required"`
	Command   string `xml:"command" validate:"required"`
	Platform  string `xml:"platform"`
	Theme     string `xml:"theme"`
}

var validate = validator.New()

// LoadConfig reads the systems file at path. arcadeNames is attached to
// systems tagged arcade or neogeo and may be nil.
func LoadConfig(ctx context.Context, path string, arcadeNames pathid.NameTable) ([]*Definition, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		missing := &ConfigMissingError{Path: path}
		if werr := WriteExampleConfig(path); werr != nil {
			logutil.GetLogger(ctx).Error("write example systems config failed", zap.String("path", path), zap.Error(werr))
		} else {
			missing.ExamplePath = path
		}
		return nil, missing
	}
	if err != nil {
		return nil, fmt.Errorf("read systems config %s: %w", path, err)
	}
	var list systemListXML
	if err := xml.Unmarshal(raw, &list); err != nil {
		return nil, &ConfigInvalidError{Path: path, Err: err}
	}

	logger := logutil.GetLogger(ctx)
	defs := make([]*Definition, 0, len(list.Systems))
	seen := make(map[string]struct{}, len(list.Systems))
	for i, sx := range list.Systems {
		sx.trim()
		if err := validate.Struct(sx); err != nil {
			label := sx.Name
			if label == "" {
				label = fmt.Sprintf("#%d", i+1)
			}
			return nil, &ConfigInvalidError{Path: path, System: label, Err: formatValidationError(err)}
		}
		if _, dup := seen[sx.Name]; dup {
			return nil, &ConfigInvalidError{Path: path, System: sx.Name, Err: errors.New("duplicate system name")}
		}
		seen[sx.Name] = struct{}{}

		platforms, unknown := platform.Parse(sx.Platform)
		if len(unknown) > 0 {
			logger.Warn("unknown platform tags ignored", zap.String("system", sx.Name), zap.Strings("tags", unknown))
		}
		def := &Definition{
			name:       sx.Name,
			fullName:   sx.FullName,
			root:       filepath.Clean(pathid.ExpandHome(sx.Path)),
			extensions: strings.Fields(sx.Extension),
			command:    sx.Command,
			platforms:  platforms,
			theme:      sx.Theme,
		}
		if def.fullName == "" {
			def.fullName = def.name
		}
		if def.theme == "" {
			def.theme = def.name
		}
		if platform.UsesArcadeNames(platforms) {
			def.names = arcadeNames
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func (s *systemXML) trim() {
	s.Name = strings.TrimSpace(s.Name)
	s.FullName = strings.TrimSpace(s.FullName)
	s.Path = strings.TrimSpace(s.Path)
	s.Extension = strings.TrimSpace(s.Extension)
	s.Command = strings.TrimSpace(s.Command)
	s.Platform = strings.TrimSpace(s.Platform)
	s.Theme = strings.TrimSpace(s.Theme)
}

func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		tag := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("<%s> must not be empty", tag))
		case "excludesall":
			msgs = append(msgs, fmt.Sprintf("<%s> must not contain path separators", tag))
		default:
			msgs = append(msgs, fmt.Sprintf("<%s> failed %s", tag, fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

const exampleConfig = `<!-- Systems known to gamedeck. Every system lives in its own <system> block. -->
<systemList>
	<system>
		<!-- Short identifier, lower case by convention. -->
		<name>nes</name>

		<!-- Display name. Defaults to <name>. -->
		<fullname>Nintendo Entertainment System</fullname>

		<!-- Folder scanned for games. A leading ~ expands to the home directory. -->
		<path>~/roms/nes</path>

		<!-- Whitespace separated file extensions, leading dot included. Matching ignores case. -->
		<extension>.nes .zip</extension>

		<!-- Command run through sh -c to start a game.
		     %ROM%      shell quoted absolute path of the game file
		     %BASENAME% file name without directory and extension
		     %ROM_RAW%  absolute path without quoting -->
		<command>retroarch -L ~/cores/fceumm_libretro.so %ROM%</command>

		<!-- Optional whitespace separated platform tags, e.g. "genesis megadrive".
		     "arcade" and "neogeo" enable arcade set name lookup, "ignore" clears all tags. -->
		<platform>nes</platform>

		<!-- Optional theme folder. Defaults to <name>. -->
		<theme>nes</theme>
	</system>
</systemList>
`

// WriteExampleConfig writes a commented example systems file to path.
func WriteExampleConfig(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure config dir %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(exampleConfig), 0o644); err != nil {
		return fmt.Errorf("write example config %s: %w", path, err)
	}
	return nil
}
