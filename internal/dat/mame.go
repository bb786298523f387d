package dat

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
)

// MameParser reads MAME-style DAT files.
type MameParser struct{}

// NewMameParser builds a fresh MAME DAT parser.
func NewMameParser() MameParser {
	return MameParser{}
}

// ParseFile opens and parses a MAME DAT file.
func (p MameParser) ParseFile(path string) (*MameDataFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mame dat %s: %w", path, err)
	}
	defer f.Close()
	return p.Parse(f)
}

// Parse consumes MAME DAT XML content from the provided reader.
func (p MameParser) Parse(r io.Reader) (*MameDataFile, error) {
	decoder := xml.NewDecoder(r)
	decoder.Strict = false // DTD is referenced; relax strict parsing.

	var df MameDataFile
	if err := decoder.Decode(&df); err != nil {
		return nil, fmt.Errorf("decode mame dat: %w", err)
	}
	return &df, nil
}

// MameDataFile is the root node of a MAME DAT file. Listings produced by
// "mame -listxml" use <mame> as root and are accepted too.
type MameDataFile struct {
	XMLName  xml.Name
	Header   Header        `xml:"header"`
	Machines []MameMachine `xml:"machine"`
	Games    []MameMachine `xml:"game"`
}

// MameMachine represents a single machine entry.
type MameMachine struct {
	Name         string `xml:"name,attr"`
	CloneOf      string `xml:"cloneof,attr,omitempty"`
	IsBios       string `xml:"isbios,attr,omitempty"`
	IsDevice     string `xml:"isdevice,attr,omitempty"`
	Runnable     string `xml:"runnable,attr,omitempty"`
	Description  string `xml:"description"`
	Year         string `xml:"year"`
	Manufacturer string `xml:"manufacturer"`
}

// Playable reports whether the machine is a game rather than a BIOS or device.
func (m MameMachine) Playable() bool {
	return m.IsBios != "yes" && m.IsDevice != "yes" && m.Runnable != "no"
}

// AllMachines returns machine and legacy game entries together.
func (df *MameDataFile) AllMachines() []MameMachine {
	if df == nil {
		return nil
	}
	out := make([]MameMachine, 0, len(df.Machines)+len(df.Games))
	out = append(out, df.Machines...)
	return append(out, df.Games...)
}

// FindMachine returns the first machine matching the given name.
func (df *MameDataFile) FindMachine(name string) *MameMachine {
	all := df.AllMachines()
	for i := range all {
		if all[i].Name == name {
			return &all[i]
		}
	}
	return nil
}
