package gamelist

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/gamedeck/internal/db"
	"github.com/xxxsen/gamedeck/internal/metadata"
	"github.com/xxxsen/gamedeck/internal/pathid"
)

type testSystem struct {
	root string
}

func (s testSystem) Name() string { return "nes" }
func (s testSystem) RootPath() string { return s.root }
func (s testSystem) Extensions() []string { return []string{".nes"} }
func (s testSystem) CleanName(id string) string {
	return pathid.CleanGameName(id, nil)
}

type fixture struct {
	root  string
	store *db.FileStore
	sys   testSystem
	gl    *Interchange
}

func newFixture(t *testing.T, files ...string) *fixture {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		p := filepath.Join(root, f)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte("rom"), 0o644); err != nil {
			t.Fatalf("write rom: %v", err)
		}
	}
	store, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "gamelist.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return &fixture{
		root:  root,
		store: store,
		sys:   testSystem{root: root},
		gl:    New(store, Options{DataDir: t.TempDir()}),
	}
}

func (f *fixture) writeGamelist(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(f.root, "gamelist.xml")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write gamelist: %v", err)
	}
	return p
}

func TestImportGamelist(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "Mario (USA).nes", "sub/Zelda.nes")
	xmlPath := f.writeGamelist(t, `<?xml version="1.0"?>
<gameList>
  <game>
    <path>./Mario (USA).nes</path>
    <rating>0.7</rating>
    <releasedate>19850913T000000</releasedate>
    <image>./media/mario.png</image>
  </game>
  <folder><path>./sub</path><name>Sub Games</name></folder>
  <game><path>./Missing.nes</path><name>Ghost</name></game>
  <game><path>/elsewhere/Other.nes</path></game>
</gameList>`)

	res, err := f.gl.Import(ctx, f.sys, xmlPath)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 2, res.Skipped)

	rec, kind, err := f.store.GetMetadata(ctx, "Mario (USA).nes", "nes")
	require.NoError(t, err)
	assert.Equal(t, db.Game, kind)
	assert.Equal(t, "Mario", rec.Name())
	rd, _ := rec.Get("releasedate")
	assert.Equal(t, "1985-09-13T00:00:00Z", rd)
	img, _ := rec.Get("image")
	assert.Equal(t, filepath.Join(f.root, "media", "mario.png"), img)

	rec, kind, err = f.store.GetMetadata(ctx, "sub", "nes")
	require.NoError(t, err)
	assert.Equal(t, db.Folder, kind)
	assert.Equal(t, "Sub Games", rec.Name())

	_, _, err = f.store.GetMetadata(ctx, "Missing.nes", "nes")
	assert.True(t, db.IsNotFound(err))
}

func TestImportPreservesStatistics(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "Game.nes")
	rec := metadata.NewRecord(metadata.KindGame)
	require.NoError(t, rec.SetInt("playcount", 7))
	require.NoError(t, rec.Set("lastplayed", "2024-01-02T03:04:05Z"))
	require.NoError(t, rec.Set("genre", "Platform"))
	require.NoError(t, f.store.SetMetadata(ctx, "Game.nes", "nes", db.Game, rec))

	xmlPath := f.writeGamelist(t, `<gameList><game><path>./Game.nes</path><name>Game!</name></game></gameList>`)
	_, err := f.gl.Import(ctx, f.sys, xmlPath)
	require.NoError(t, err)

	got, _, err := f.store.GetMetadata(ctx, "Game.nes", "nes")
	require.NoError(t, err)
	pc, _ := got.GetInt("playcount")
	assert.Equal(t, 7, pc)
	lp, _ := got.Get("lastplayed")
	assert.Equal(t, "2024-01-02T03:04:05Z", lp)
	genre, _ := got.Get("genre")
	assert.Equal(t, "unknown", genre)
	assert.Equal(t, "Game!", got.Name())
}

func TestImportMalformedWritesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "Game.nes")
	xmlPath := f.writeGamelist(t, `<systemList><game><path>./Game.nes</path></game></systemList>`)
	_, err := f.gl.Import(ctx, f.sys, xmlPath)
	var malformed *metadata.MalformedDocumentError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedDocumentError, got %v", err)
	}
	entries, err := f.store.Entries(ctx, "nes", false)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExportSuppressesDefaults(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "Plain (USA).nes", "Rated.nes")
	_, err := f.store.PopulateFromFilesystem(ctx, f.sys)
	require.NoError(t, err)

	rec, _, err := f.store.GetMetadata(ctx, "Rated.nes", "nes")
	require.NoError(t, err)
	require.NoError(t, rec.Set("rating", "1"))
	require.NoError(t, rec.Set("lastplayed", "2020-02-03T04:05:06Z"))
	require.NoError(t, f.store.SetMetadata(ctx, "Rated.nes", "nes", db.Game, rec))

	out := filepath.Join(t.TempDir(), "export.xml")
	n, err := f.gl.Export(ctx, f.sys, out)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	doc, err := metadata.ParseGamelistFile(out)
	require.NoError(t, err)
	require.Len(t, doc.Nodes, 1)
	node := doc.Nodes[0]
	assert.Equal(t, "path", node.Fields[0].XMLName.Local)
	assert.Equal(t, "./Rated.nes", node.Path())
	rating, _ := node.Value("rating")
	assert.Equal(t, "1.000000", rating)
	lp, _ := node.Value("lastplayed")
	assert.Equal(t, "20200203T040506", lp)
	_, hasName := node.Value("name")
	assert.False(t, hasName)
	_, hasDev := node.Value("developer")
	assert.False(t, hasDev)
}

func TestUpdateGamelistMergesOnWrite(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "A.nes", "B.nes")
	xmlPath := f.writeGamelist(t, `<?xml version="1.0"?>
<gameList>
  <provider><system>NES</system></provider>
  <game source="scraper"><path>./A.nes</path><name>Old A</name><custom>keep me?</custom></game>
  <game><path>./Unknown.nes</path><name>Hand added</name></game>
</gameList>`)

	rec := metadata.NewRecord(metadata.KindGame)
	require.NoError(t, rec.Set("name", "New A"))
	require.NoError(t, f.store.SetMetadata(ctx, "A.nes", "nes", db.Game, rec))
	require.NoError(t, f.store.SetMetadata(ctx, "B.nes", "nes", db.Game, metadata.NewRecord(metadata.KindGame)))

	require.NoError(t, f.gl.Update(ctx, f.sys))

	raw, err := os.ReadFile(xmlPath)
	require.NoError(t, err)
	content := string(raw)
	assert.Contains(t, content, "New A")
	assert.NotContains(t, content, "Old A")
	assert.Contains(t, content, "Hand added")
	assert.Contains(t, content, "<provider>")
	assert.NotContains(t, content, "./B.nes")
	assert.Equal(t, 1, strings.Count(content, "./A.nes"))

	doc, err := metadata.ParseGamelistFile(xmlPath)
	require.NoError(t, err)
	require.Len(t, doc.Nodes, 3)
	assert.Equal(t, "./A.nes", doc.Nodes[2].Path())
}

func TestUpdateGamelistIgnoredAndDataDir(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "A.nes")
	rec := metadata.NewRecord(metadata.KindGame)
	require.NoError(t, rec.Set("name", "Alpha"))
	require.NoError(t, f.store.SetMetadata(ctx, "A.nes", "nes", db.Game, rec))

	ignored := New(f.store, Options{DataDir: t.TempDir(), IgnoreGamelist: true})
	require.NoError(t, ignored.Update(ctx, f.sys))
	_, err := os.Stat(ignored.PathFor(f.sys))
	assert.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, f.gl.Update(ctx, f.sys))
	p := f.gl.PathFor(f.sys)
	assert.NotEqual(t, filepath.Join(f.root, "gamelist.xml"), p)
	doc, err := metadata.ParseGamelistFile(p)
	require.NoError(t, err)
	require.Len(t, doc.Nodes, 1)
}

func TestUpdateRejectsAmbiguousRows(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "real/A.nes")
	if err := os.Symlink(filepath.Join(f.root, "real"), filepath.Join(f.root, "alias")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	rec := metadata.NewRecord(metadata.KindGame)
	require.NoError(t, rec.Set("name", "A"))
	require.NoError(t, f.store.SetMetadata(ctx, "real/A.nes", "nes", db.Game, rec))
	require.NoError(t, f.store.SetMetadata(ctx, "alias/A.nes", "nes", db.Game, rec))

	err := f.gl.Update(ctx, f.sys)
	var ambiguous *AmbiguousPathError
	if !errors.As(err, &ambiguous) {
		t.Fatalf("expected AmbiguousPathError, got %v", err)
	}
}

func TestPathForPrefersRootFile(t *testing.T) {
	f := newFixture(t, "Game.nes")
	dataPath := f.gl.PathFor(f.sys)
	assert.Equal(t, filepath.Join(f.gl.opts.DataDir, "gamelists", "nes", "gamelist.xml"), dataPath)

	local := filepath.Join(f.root, "gamelist.xml")
	require.NoError(t, os.WriteFile(local, []byte("<gameList/>"), 0o644))
	assert.Equal(t, local, f.gl.PathFor(f.sys))

	require.NoError(t, f.store.SetMetadata(context.Background(), "Game.nes", "nes", db.Game, namedRecord(t, "Renamed")))
	require.NoError(t, f.gl.Update(context.Background(), f.sys))
	data, err := os.ReadFile(local)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<name>Renamed</name>")
	_, err = os.Stat(dataPath)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func namedRecord(t *testing.T, name string) *metadata.Record {
	t.Helper()
	rec := metadata.NewRecord(metadata.KindGame)
	if err := rec.Set("name", name); err != nil {
		t.Fatalf("set name: %v", err)
	}
	return rec
}
