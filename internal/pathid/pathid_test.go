package pathid

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticNames map[string]string

func (s staticNames) Lookup(raw string) (string, bool) {
	v, ok := s[raw]
	return v, ok
}

func TestIdentifierRoundTrip(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	paths := []string{
		filepath.Join(root, "Game (USA).nes"),
		filepath.Join(root, "sub", "deep", "x.nes"),
		filepath.Join(root, "sub", "..", "y.nes"),
		root,
	}
	for _, p := range paths {
		id, err := ToIdentifier(p, root)
		require.NoError(t, err)
		assert.Equal(t, id, Normalize(id))
		assert.Equal(t, filepath.Clean(p), ToAbsolutePath(id, root))
	}
}

func TestToIdentifierOutsideRoot(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	_, err := ToIdentifier(filepath.Join(filepath.Dir(root), "other.nes"), root)
	var outside *PathOutsideRootError
	if !errors.As(err, &outside) {
		t.Fatalf("expected PathOutsideRootError, got %v", err)
	}
	assert.Equal(t, root, outside.Root)
}

func TestToAbsolutePathLegacyForms(t *testing.T) {
	t.Parallel()
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, "/roms/nes/a.nes", ToAbsolutePath("./a.nes", "/roms/nes"))
	assert.Equal(t, "/roms/nes/a/b.nes", ToAbsolutePath("a/b.nes", "/roms/nes"))
	assert.Equal(t, filepath.Join(home, "roms", "x.nes"), ToAbsolutePath("~/roms/x.nes", "/roms/nes"))
	assert.Equal(t, "/elsewhere/x.nes", ToAbsolutePath("/elsewhere/x.nes", "/roms/nes"))
	assert.Equal(t, "/roms/nes", ToAbsolutePath(".", "/roms/nes"))
}

func TestMakeRelative(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "./media/a.png", MakeRelative("/roms/nes/media/a.png", "/roms/nes"))
	assert.Equal(t, "/opt/a.png", MakeRelative("/opt/a.png", "/roms/nes"))
	assert.Equal(t, "", MakeRelative("", "/roms/nes"))
}

func TestDirectoryPredicates(t *testing.T) {
	t.Parallel()
	assert.True(t, IsInDirectory("a/b/c.nes", "a"))
	assert.True(t, IsInDirectory("a/b/c.nes", Root))
	assert.False(t, IsInDirectory("ab/c.nes", "a"))
	assert.False(t, IsInDirectory("a", "a"))
	assert.True(t, IsImmediateChildOf("a/b", "a"))
	assert.False(t, IsImmediateChildOf("a/b/c.nes", "a"))
	assert.True(t, IsImmediateChildOf("top.nes", Root))
	assert.False(t, IsImmediateChildOf("a/top.nes", Root))
	assert.Equal(t, "a/b", Parent("a/b/c.nes"))
	assert.Equal(t, Root, Parent("c.nes"))
}

func TestCleanGameName(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		id    string
		names NameTable
		want  string
	}{
		"region":     {id: "Game (USA).nes", want: "Game"},
		"nested dir": {id: "sub/Zelda [!] (E) (v1.1).nes", want: "Zelda"},
		"nested":     {id: "Odd (a (b) c) end.nes", want: "Odd  end"},
		"unbalanced": {id: "Broken ) (USA.nes", want: "Broken ) (USA"},
		"stray square": {id: "Game ] (USA).nes", want: "Game ]"},
		"stray paren":  {id: "Game ) [!].nes", want: "Game )"},
		"folder":     {id: "Collection", want: "Collection"},
		"arcade":     {id: "sf2.zip", names: staticNames{"sf2": "Street Fighter II (World 910522)"}, want: "Street Fighter II"},
		"arcade miss": {id: "zzz.zip", names: staticNames{}, want: "zzz"},
	}
	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if got := CleanGameName(tt.id, tt.names); got != tt.want {
				t.Fatalf("CleanGameName(%q) = %q, want %q", tt.id, got, tt.want)
			}
		})
	}
}
