// Package pathid maps absolute filesystem paths to root-relative file
// identifiers and back, and derives display names from identifiers.
package pathid

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode"
)

// Root is the identifier of a system's root folder.
const Root = "."

// PathOutsideRootError reports a path that does not lie under its system root.
type PathOutsideRootError struct {
	Path string
	Root string
}

func (e *PathOutsideRootError) Error() string {
	return fmt.Sprintf("path %s is outside root %s", e.Path, e.Root)
}

// NameTable resolves a raw file stem to a human readable name.
type NameTable interface {
	Lookup(raw string) (string, bool)
}

// Normalize returns the canonical forward-slash form of an identifier.
func Normalize(id string) string {
	id = strings.ReplaceAll(id, "\\", "/")
	id = path.Clean(id)
	id = strings.TrimPrefix(id, "./")
	if id == "" || id == "/" {
		return Root
	}
	return id
}

// ExpandHome replaces a leading "~" with the current user's home directory.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// ToIdentifier computes the identifier of absPath below root.
func ToIdentifier(absPath, root string) (string, error) {
	cleanRoot := filepath.Clean(ExpandHome(root))
	cleanPath := filepath.Clean(ExpandHome(absPath))
	rel, err := filepath.Rel(cleanRoot, cleanPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", &PathOutsideRootError{Path: absPath, Root: root}
	}
	return Normalize(filepath.ToSlash(rel)), nil
}

// ToAbsolutePath resolves an identifier against root. Legacy "~/" and "./"
// forms from hand edited gamelists are accepted, as are absolute paths.
func ToAbsolutePath(id, root string) string {
	id = strings.TrimSpace(id)
	root = filepath.Clean(ExpandHome(root))
	switch {
	case id == "" || id == Root:
		return root
	case id == "~" || strings.HasPrefix(id, "~/"):
		return filepath.Clean(ExpandHome(id))
	case filepath.IsAbs(id):
		return filepath.Clean(id)
	}
	return filepath.Join(root, filepath.FromSlash(Normalize(id)))
}

// ResolveRelative resolves a possibly relative path against base, used for
// media paths in gamelist documents.
func ResolveRelative(p, base string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	return ToAbsolutePath(p, base)
}

// MakeRelative returns "./x" when absPath lies under root, "~/x" when it lies
// under the home directory and absPath unchanged otherwise.
func MakeRelative(absPath, root string) string {
	if absPath == "" {
		return ""
	}
	if id, err := ToIdentifier(absPath, root); err == nil {
		if id == Root {
			return "."
		}
		return "./" + id
	}
	if home, err := os.UserHomeDir(); err == nil {
		if id, err := ToIdentifier(absPath, home); err == nil && id != Root {
			return "~/" + id
		}
	}
	return absPath
}

// Parent returns the identifier of the folder containing id.
func Parent(id string) string {
	id = Normalize(id)
	if id == Root {
		return Root
	}
	dir := path.Dir(id)
	if dir == "." {
		return Root
	}
	return dir
}

// IsInDirectory reports whether file lies anywhere below dir.
func IsInDirectory(file, dir string) bool {
	if dir == "" || dir == Root {
		return file != "" && file != Root
	}
	return strings.HasPrefix(file, dir+"/")
}

// IsImmediateChildOf reports whether the parent folder of file is exactly dir.
func IsImmediateChildOf(file, dir string) bool {
	if !IsInDirectory(file, dir) {
		return false
	}
	if dir == "" || dir == Root {
		return !strings.Contains(file, "/")
	}
	return !strings.Contains(file[len(dir)+1:], "/")
}

// CleanGameName derives a display name from an identifier: the extension is
// dropped, an optional name table is consulted and bracketed groups are removed.
func CleanGameName(id string, names NameTable) string {
	stem := path.Base(Normalize(id))
	if ext := path.Ext(stem); ext != "" && ext != stem {
		stem = strings.TrimSuffix(stem, ext)
	}
	if names != nil {
		if pretty, ok := names.Lookup(stem); ok {
			stem = pretty
		}
	}
	return StripBrackets(stem)
}

var bracketPairs = [...][2]byte{{'(', ')'}, {'[', ']'}}

// StripBrackets removes "(...)" and "[...]" groups until neither kind has a
// matched pair left, then trims trailing whitespace. Each kind is scanned on
// its own, so a stray "]" does not stop parentheses from being removed.
func StripBrackets(s string) string {
	for {
		removed := false
		for _, pair := range bracketPairs {
			end := strings.IndexByte(s, pair[1])
			if end < 0 {
				continue
			}
			start := strings.LastIndexByte(s[:end], pair[0])
			if start < 0 {
				continue
			}
			s = s[:start] + s[end+1:]
			removed = true
		}
		if !removed {
			break
		}
	}
	return strings.TrimRightFunc(s, unicode.IsSpace)
}
