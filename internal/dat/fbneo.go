package dat

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
)

// Parser reads FinalBurn Neo DAT files.
type Parser struct{}

// NewParser builds a fresh DAT parser.
func NewParser() Parser {
	return Parser{}
}

// ParseFile opens and parses a FinalBurn Neo DAT file.
func (p Parser) ParseFile(path string) (*DataFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fbneo dat %s: %w", path, err)
	}
	defer f.Close()
	return p.Parse(f)
}

// Parse consumes DAT XML content from the provided reader.
func (p Parser) Parse(r io.Reader) (*DataFile, error) {
	decoder := xml.NewDecoder(r)
	decoder.Strict = false // fbneo.dat includes a DTD; relax strict parsing.

	var df DataFile
	if err := decoder.Decode(&df); err != nil {
		return nil, fmt.Errorf("decode fbneo dat: %w", err)
	}
	return &df, nil
}

// DataFile is the root node of a FinalBurn Neo DAT file.
type DataFile struct {
	XMLName xml.Name `xml:"datafile"`
	Header  Header   `xml:"header"`
	Games   []Game   `xml:"game"`
}

// Header carries top-level metadata for the DAT.
type Header struct {
	Name        string `xml:"name"`
	Description string `xml:"description"`
	Version     string `xml:"version"`
}

// Game represents a single ROM set entry.
type Game struct {
	Name         string `xml:"name,attr"`
	IsBios       string `xml:"isbios,attr,omitempty"`
	CloneOf      string `xml:"cloneof,attr,omitempty"`
	Description  string `xml:"description"`
	Year         string `xml:"year"`
	Manufacturer string `xml:"manufacturer"`
}

// FindGame returns the first game matching the given name.
func (df *DataFile) FindGame(name string) *Game {
	if df == nil {
		return nil
	}
	for i := range df.Games {
		if df.Games[i].Name == name {
			return &df.Games[i]
		}
	}
	return nil
}
