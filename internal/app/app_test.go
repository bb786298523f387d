package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/gamedeck/internal/config"
	"github.com/xxxsen/gamedeck/internal/db"
	"github.com/xxxsen/gamedeck/internal/model"
	"github.com/xxxsen/gamedeck/internal/pathid"
	"github.com/xxxsen/gamedeck/internal/storage"
)

const testSystemsConfig = `<systemList>
  <system>
    <name>nes</name>
    <fullname>Nintendo Entertainment System</fullname>
    <path>%s</path>
    <extension>.nes</extension>
    <command>emu %%ROM%%</command>
    <platform>nes</platform>
  </system>
</systemList>`

type testEnv struct {
	env  *Env
	root string
}

func newTestEnv(t *testing.T, roms ...string) *testEnv {
	t.Helper()
	root := filepath.Join(t.TempDir(), "roms")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatalf("mkdir root: %v", err)
	}
	for _, r := range roms {
		p := filepath.Join(root, r)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir rom dir: %v", err)
		}
		if err := os.WriteFile(p, []byte("rom"), 0o644); err != nil {
			t.Fatalf("write rom: %v", err)
		}
	}
	cfgPath := filepath.Join(t.TempDir(), "es_systems.cfg")
	if err := os.WriteFile(cfgPath, []byte(fmt.Sprintf(testSystemsConfig, root)), 0o644); err != nil {
		t.Fatalf("write systems config: %v", err)
	}
	dataDir := t.TempDir()
	cfg := &config.Config{
		DataDir:       dataDir,
		Database:      filepath.Join(dataDir, "gamelist.db"),
		SystemsConfig: cfgPath,
		Serve:         config.ServeConfig{Bind: "127.0.0.1:0"},
		S3:            config.S3Config{Bucket: "roms", Prefix: "backups"},
	}
	env, err := NewEnv(context.Background(), cfg)
	if err != nil {
		t.Fatalf("new env: %v", err)
	}
	t.Cleanup(func() { _ = env.Close() })
	return &testEnv{env: env, root: root}
}

func runRunner(t *testing.T, r IRunner, env *Env) error {
	t.Helper()
	ctx := context.Background()
	if err := r.PreRun(ctx, env); err != nil {
		return err
	}
	if err := r.Run(ctx); err != nil {
		return err
	}
	return r.PostRun(ctx)
}

func (te *testEnv) scan(t *testing.T) {
	t.Helper()
	require.NoError(t, runRunner(t, NewScanCommand(), te.env))
}

func TestRunnerRegistry(t *testing.T) {
	names := RunnerList()
	for _, want := range []string{"scan", "import", "export", "update-gamelist", "list", "sorts", "launch", "prune", "serve", "backup", "restore"} {
		assert.Contains(t, names, want)
		r, err := ResolveRunner(want)
		require.NoError(t, err)
		assert.Equal(t, want, r.Name())
		assert.NotEmpty(t, r.Desc())
	}
	_, err := ResolveRunner("missing")
	assert.Error(t, err)
}

func TestResolveFileID(t *testing.T) {
	te := newTestEnv(t, "Mario.nes")
	sys, err := te.env.Definition(context.Background(), "nes")
	require.NoError(t, err)

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "", want: pathid.Root},
		{in: ".", want: pathid.Root},
		{in: "./sub/Game.nes", want: "sub/Game.nes"},
		{in: filepath.Join(te.root, "Mario.nes"), want: "Mario.nes"},
		{in: "/elsewhere/Mario.nes", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := resolveFileID(sys, tt.in)
			if tt.wantErr {
				var outside *pathid.PathOutsideRootError
				assert.True(t, errors.As(err, &outside))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScanAndList(t *testing.T) {
	te := newTestEnv(t, "Mario.nes", "rpg/Zelda.nes", "notes.txt")
	te.scan(t)

	var buf bytes.Buffer
	list := NewListCommand()
	list.out = &buf
	list.systemName = "nes"
	list.path = "."
	list.folders = true
	require.NoError(t, runRunner(t, list, te.env))

	var resp model.ChildrenResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "nes", resp.System)
	assert.Equal(t, pathid.Root, resp.Path)
	require.Len(t, resp.Files, 2)
	assert.Equal(t, "Mario", resp.Files[0].Name)
	assert.Equal(t, "game", resp.Files[0].Kind)
	assert.Equal(t, "rpg", resp.Files[1].ID)
	assert.Equal(t, "folder", resp.Files[1].Kind)

	buf.Reset()
	list = NewListCommand()
	list.out = &buf
	list.systemName = "nes"
	list.recursive = true
	list.folders = false
	require.NoError(t, runRunner(t, list, te.env))
	resp = model.ChildrenResponse{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	ids := make([]string, 0, len(resp.Files))
	for _, f := range resp.Files {
		ids = append(ids, f.ID)
	}
	assert.Equal(t, []string{"Mario.nes", "rpg/Zelda.nes"}, ids)
}

func TestListRequiresSystem(t *testing.T) {
	te := newTestEnv(t)
	err := NewListCommand().PreRun(context.Background(), te.env)
	if err == nil || !strings.Contains(err.Error(), "--system") {
		t.Fatalf("expected missing system error, got %v", err)
	}
	list := NewListCommand()
	list.systemName = "snes"
	assert.Error(t, list.PreRun(context.Background(), te.env))
}

func TestSortsCommand(t *testing.T) {
	var buf bytes.Buffer
	c := NewSortsCommand()
	c.out = &buf
	require.NoError(t, runRunner(t, c, nil))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, len(db.Sorts()))
	assert.Contains(t, lines[0], db.SortAt(0).Description)
}

func TestLaunchRecordsPlay(t *testing.T) {
	te := newTestEnv(t, "Mario.nes")
	te.scan(t)

	var ran []string
	at := time.Date(2024, 3, 1, 20, 15, 0, 0, time.UTC)
	launch := NewLaunchCommand()
	launch.systemName = "nes"
	launch.path = "Mario.nes"
	launch.now = func() time.Time { return at }
	launch.exec = func(ctx context.Context, cmdline string) error {
		ran = append(ran, cmdline)
		return nil
	}
	require.NoError(t, runRunner(t, launch, te.env))
	require.NoError(t, runRunner(t, launch, te.env))

	require.Len(t, ran, 2)
	assert.True(t, strings.HasPrefix(ran[0], "emu "))
	assert.Contains(t, ran[0], filepath.Join(te.root, "Mario.nes"))

	rec, _, err := te.env.Store.GetMetadata(context.Background(), "Mario.nes", "nes")
	require.NoError(t, err)
	count, err := rec.GetInt("playcount")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	last, err := rec.GetTime("lastplayed")
	require.NoError(t, err)
	assert.True(t, at.Equal(last))

	sys, err := te.env.Definition(context.Background(), "nes")
	require.NoError(t, err)
	raw, err := os.ReadFile(te.env.Gamelists.PathFor(sys))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "<playcount>2</playcount>")
	assert.Contains(t, string(raw), "<lastplayed>20240301T201500</lastplayed>")
}

func TestLaunchCommandFailureStillRecorded(t *testing.T) {
	te := newTestEnv(t, "Mario.nes")
	te.scan(t)

	launch := NewLaunchCommand()
	launch.systemName = "nes"
	launch.path = "Mario.nes"
	launch.exec = func(ctx context.Context, cmdline string) error { return errors.New("exit status 1") }
	err := runRunner(t, launch, te.env)
	require.Error(t, err)

	rec, _, err := te.env.Store.GetMetadata(context.Background(), "Mario.nes", "nes")
	require.NoError(t, err)
	count, _ := rec.GetInt("playcount")
	assert.Equal(t, 1, count)
}

func TestLaunchRejectsFolder(t *testing.T) {
	te := newTestEnv(t, "rpg/Zelda.nes")
	te.scan(t)

	launch := NewLaunchCommand()
	launch.systemName = "nes"
	launch.path = "rpg"
	launch.exec = func(ctx context.Context, cmdline string) error {
		t.Fatalf("folder must not be launched")
		return nil
	}
	assert.Error(t, runRunner(t, launch, te.env))
}

func TestPruneDeletesMissing(t *testing.T) {
	te := newTestEnv(t, "Mario.nes", "Zelda.nes")
	te.scan(t)
	require.NoError(t, os.Remove(filepath.Join(te.root, "Zelda.nes")))

	prune := NewPruneCommand()
	require.NoError(t, runRunner(t, prune, te.env))

	ctx := context.Background()
	_, _, err := te.env.Store.GetMetadata(ctx, "Zelda.nes", "nes")
	assert.True(t, db.IsNotFound(err))
	ok, err := te.env.Store.FileExists(ctx, "Mario.nes", "nes")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestImportExportRoundTrip(t *testing.T) {
	te := newTestEnv(t, "Mario.nes")
	te.scan(t)

	src := filepath.Join(t.TempDir(), "gamelist.xml")
	require.NoError(t, os.WriteFile(src, []byte(`<gameList>
  <game><path>./Mario.nes</path><name>Super Mario Bros.</name><genre>Platform</genre></game>
</gameList>`), 0o644))

	imp := NewImportCommand()
	imp.systemName = "nes"
	imp.file = src
	require.NoError(t, runRunner(t, imp, te.env))

	out := filepath.Join(t.TempDir(), "out.xml")
	exp := NewExportCommand()
	exp.systemName = "nes"
	exp.file = out
	require.NoError(t, runRunner(t, exp, te.env))

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "<name>Super Mario Bros.</name>")
	assert.Contains(t, string(raw), "<genre>Platform</genre>")
	assert.NotContains(t, string(raw), "<developer>")
}

func TestExportRequiresFile(t *testing.T) {
	te := newTestEnv(t)
	exp := NewExportCommand()
	exp.systemName = "nes"
	assert.Error(t, exp.PreRun(context.Background(), te.env))
}

type memoryStorage struct {
	objects map[string][]byte
}

func (m *memoryStorage) PutGamelist(ctx context.Context, key, localPath string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	m.objects[key] = data
	return nil
}

func (m *memoryStorage) GetGamelist(ctx context.Context, key, localPath string) error {
	data, ok := m.objects[key]
	if !ok {
		return fmt.Errorf("object %s not found", key)
	}
	return os.WriteFile(localPath, data, 0o644)
}

func TestBackupAndRestore(t *testing.T) {
	mem := &memoryStorage{objects: map[string][]byte{}}
	te := newTestEnv(t, "Mario.nes")
	te.env.Storage = mem
	te.scan(t)
	ctx := context.Background()

	rec, kind, err := te.env.Store.GetMetadata(ctx, "Mario.nes", "nes")
	require.NoError(t, err)
	require.NoError(t, rec.Set("name", "Super Mario Bros."))
	require.NoError(t, te.env.Store.SetMetadata(ctx, "Mario.nes", "nes", kind, rec))

	backup := NewBackupCommand()
	require.NoError(t, runRunner(t, backup, te.env))
	key := storage.GamelistKey("backups", backup.runID, "nes")
	require.Contains(t, mem.objects, key)
	assert.Contains(t, string(mem.objects[key]), "Super Mario Bros.")

	require.NoError(t, rec.Set("name", "Broken"))
	require.NoError(t, te.env.Store.SetMetadata(ctx, "Mario.nes", "nes", kind, rec))

	restore := NewRestoreCommand()
	restore.runID = backup.runID
	require.NoError(t, runRunner(t, restore, te.env))

	got, _, err := te.env.Store.GetMetadata(ctx, "Mario.nes", "nes")
	require.NoError(t, err)
	assert.Equal(t, "Super Mario Bros.", got.Name())
}

func TestStorageClientRequiresS3Settings(t *testing.T) {
	te := newTestEnv(t)
	_, err := te.env.StorageClient(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3.host")
	assert.Error(t, NewBackupCommand().PreRun(context.Background(), te.env))
}

func TestRestoreRequiresRun(t *testing.T) {
	te := newTestEnv(t)
	assert.Error(t, NewRestoreCommand().PreRun(context.Background(), te.env))
}
