package metadata

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleGamelist = `<?xml version="1.0"?>
<gameList>
  <provider><system>NES</system></provider>
  <game id="12" source="ScreenScraper">
    <path>./Mario.nes</path>
    <name>Super Mario &amp; Friends</name>
    <scrap name="ScreenScraper" date="20240101T000000"/>
    <desc><![CDATA[Jump <high>]]></desc>
  </game>
  <folder>
    <path>./Sub</path>
    <name> Sub </name>
  </folder>
</gameList>`

func TestParseGamelist(t *testing.T) {
	doc, err := ParseGamelist(strings.NewReader(sampleGamelist), "sample")
	require.NoError(t, err)
	require.Len(t, doc.Nodes, 3)

	game := doc.Nodes[1]
	assert.Equal(t, NodeGame, game.Tag())
	assert.Equal(t, "./Mario.nes", game.Path())
	name, ok := game.Value("name")
	require.True(t, ok)
	assert.Equal(t, "Super Mario & Friends", name)
	desc, _ := game.Value("desc")
	assert.Equal(t, "Jump <high>", desc)
	_, ok = game.Value("rating")
	assert.False(t, ok)

	folder := doc.Nodes[2]
	assert.Equal(t, NodeFolder, folder.Tag())
	name, _ = folder.Value("name")
	assert.Equal(t, "Sub", name)
}

func TestParseGamelistMalformed(t *testing.T) {
	tests := map[string]string{
		"wrong root": `<systemList><game/></systemList>`,
		"broken":     `<gameList><game>`,
		"empty":      ``,
	}
	for name, content := range tests {
		content := content
		t.Run(name, func(t *testing.T) {
			_, err := ParseGamelist(strings.NewReader(content), name)
			var malformed *MalformedDocumentError
			if !errors.As(err, &malformed) {
				t.Fatalf("expected MalformedDocumentError, got %v", err)
			}
		})
	}
}

func TestWriteGamelistPreservesUnknownContent(t *testing.T) {
	doc, err := ParseGamelist(strings.NewReader(sampleGamelist), "sample")
	require.NoError(t, err)

	node := NewGamelistNode(NodeGame)
	node.Add("path", "./Zelda.nes")
	node.Add("name", "Zelda <II>")
	doc.Nodes = append(doc.Nodes, node)

	out := filepath.Join(t.TempDir(), "nes", "gamelist.xml")
	require.NoError(t, WriteGamelistFile(out, doc))

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	content := string(raw)
	assert.True(t, strings.HasPrefix(content, "<?xml"))
	assert.Contains(t, content, `<scrap name="ScreenScraper" date="20240101T000000"></scrap>`)
	assert.Contains(t, content, `source="ScreenScraper"`)

	again, err := ParseGamelistFile(out)
	require.NoError(t, err)
	require.Len(t, again.Nodes, 4)
	name, _ := again.Nodes[3].Value("name")
	assert.Equal(t, "Zelda <II>", name)
	desc, _ := again.Nodes[1].Value("desc")
	assert.Equal(t, "Jump <high>", desc)
	system, _ := again.Nodes[0].Value("system")
	assert.Equal(t, "NES", system)
}

func TestParseGamelistFileMissing(t *testing.T) {
	_, err := ParseGamelistFile(filepath.Join(t.TempDir(), "none.xml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
