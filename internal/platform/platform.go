// Package platform holds the fixed platform tag vocabulary used by system
// definitions.
package platform

import "strings"

// ID identifies an emulated platform.
type ID string

const (
	Arcade ID = "arcade"
	NeoGeo ID = "neogeo"
	Ignore ID = "ignore"
)

var known = map[ID]struct{}{}

func init() {
	for _, name := range []string{
		"3do", "amiga", "amstradcpc", "apple2", "arcade", "atari800", "atari2600",
		"atari5200", "atari7800", "atarilynx", "atarist", "atarijaguar", "atarijaguarcd",
		"atarixe", "colecovision", "c64", "intellivision", "macintosh", "xbox", "xbox360",
		"msx", "neogeo", "ngp", "ngpc", "n3ds", "n64", "nds", "fds", "nes", "gb", "gba",
		"gbc", "gc", "wii", "wiiu", "virtualboy", "gameandwatch", "pc", "sega32x",
		"segacd", "dreamcast", "gamegear", "genesis", "mastersystem", "megadrive",
		"saturn", "sg-1000", "psx", "ps2", "ps3", "ps4", "psvita", "psp", "snes",
		"pcengine", "wonderswan", "wonderswancolor", "zxspectrum", "videopac", "vectrex",
		"trs-80", "coco", "ignore",
	} {
		known[ID(name)] = struct{}{}
	}
}

// Parse splits a whitespace delimited tag list. Unknown tags are returned
// separately. When "ignore" is present it is the only tag kept.
func Parse(list string) (ids []ID, unknown []string) {
	for _, tok := range strings.Fields(strings.ToLower(list)) {
		id := ID(tok)
		if _, ok := known[id]; !ok {
			unknown = append(unknown, tok)
			continue
		}
		if id == Ignore {
			return []ID{Ignore}, unknown
		}
		ids = append(ids, id)
	}
	return ids, unknown
}

// UsesArcadeNames reports whether file names of these platforms are short
// arcade set names that need a lookup table.
func UsesArcadeNames(ids []ID) bool {
	for _, id := range ids {
		if id == Arcade || id == NeoGeo {
			return true
		}
	}
	return false
}
