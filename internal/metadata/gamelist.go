package metadata

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	NodeGame   = "game"
	NodeFolder = "folder"
)

// MalformedDocumentError reports a gamelist that does not parse or lacks the
// <gameList> root.
type MalformedDocumentError struct {
	Path string
	Err  error
}

func (e *MalformedDocumentError) Error() string {
	return fmt.Sprintf("malformed gamelist %s: %v", e.Path, e.Err)
}

func (e *MalformedDocumentError) Unwrap() error {
	return e.Err
}

// Gamelist is a gamelist document. Nodes keep their original order and any
// content this package does not understand, so a document can be rewritten
// without losing hand edited data.
type Gamelist struct {
	XMLName xml.Name       `xml:"gameList"`
	Attrs   []xml.Attr     `xml:",any,attr"`
	Nodes   []GamelistNode `xml:",any"`
}

// GamelistNode is a direct child of <gameList>, usually <game> or <folder>.
type GamelistNode struct {
	XMLName xml.Name
	Attrs   []xml.Attr      `xml:",any,attr"`
	Fields  []GamelistField `xml:",any"`
}

// GamelistField is a child element of a node. Inner holds the raw element
// content.
type GamelistField struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Inner   string     `xml:",innerxml"`
}

// NewGamelistNode returns an empty node with the given tag.
func NewGamelistNode(tag string) GamelistNode {
	return GamelistNode{XMLName: xml.Name{Local: tag}}
}

// Tag returns the element name of the node.
func (n *GamelistNode) Tag() string {
	return n.XMLName.Local
}

// Value returns the trimmed text of the first field named tag.
func (n *GamelistNode) Value(tag string) (string, bool) {
	for i := range n.Fields {
		if n.Fields[i].XMLName.Local == tag {
			return n.Fields[i].Text(), true
		}
	}
	return "", false
}

// Path returns the <path> value of the node.
func (n *GamelistNode) Path() string {
	v, _ := n.Value("path")
	return v
}

// Add appends a text field.
func (n *GamelistNode) Add(tag, text string) {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(text))
	n.Fields = append(n.Fields, GamelistField{XMLName: xml.Name{Local: tag}, Inner: buf.String()})
}

// Text returns the decoded character data of the field.
func (f *GamelistField) Text() string {
	if !strings.ContainsAny(f.Inner, "<&") {
		return strings.TrimSpace(f.Inner)
	}
	dec := xml.NewDecoder(strings.NewReader("<v>" + f.Inner + "</v>"))
	dec.Strict = false
	var sb strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		if cd, ok := tok.(xml.CharData); ok {
			sb.Write(cd)
		}
	}
	return strings.TrimSpace(sb.String())
}

// ParseGamelistFile reads a gamelist from disk. Open failures are returned
// as is so callers can test for os.ErrNotExist.
func ParseGamelistFile(path string) (*Gamelist, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gamelist %s: %w", path, err)
	}
	defer f.Close()
	return ParseGamelist(f, path)
}

// ParseGamelist decodes a gamelist; name is used in error messages.
func ParseGamelist(r io.Reader, name string) (*Gamelist, error) {
	var doc Gamelist
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, &MalformedDocumentError{Path: name, Err: err}
	}
	return &doc, nil
}

// WriteGamelistFile serialises doc to path. The document is written to a
// temporary file first and renamed into place.
func WriteGamelistFile(path string, doc *Gamelist) error {
	if doc == nil {
		return fmt.Errorf("gamelist document is nil")
	}
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("invalid gamelist output path")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure gamelist dir %s: %w", path, err)
	}
	doc.XMLName = xml.Name{Local: "gameList"}

	f, err := os.CreateTemp(dir, ".gamelist-*.xml")
	if err != nil {
		return fmt.Errorf("create gamelist %s: %w", path, err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if err := encodeGamelist(f, doc); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close gamelist %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace gamelist %s: %w", path, err)
	}
	return nil
}

func encodeGamelist(w io.Writer, doc *Gamelist) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("write xml header: %w", err)
	}
	encoder := xml.NewEncoder(w)
	encoder.Indent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("encode gamelist xml: %w", err)
	}
	if err := encoder.Flush(); err != nil {
		return fmt.Errorf("flush gamelist xml: %w", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("terminate gamelist xml: %w", err)
	}
	return nil
}
