package dat

import (
	"context"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// builtinArcadeNames covers common sets so arcade systems get readable names
// without a DAT file configured.
var builtinArcadeNames = map[string]string{
	"1942":     "1942 (Revision B)",
	"1943":     "1943: The Battle of Midway (Euro)",
	"dkong":    "Donkey Kong (US set 1)",
	"galaga":   "Galaga (Namco rev. B)",
	"mslug":    "Metal Slug - Super Vehicle-001",
	"mslug2":   "Metal Slug 2 - Super Vehicle-001/II (NGM-2410 ~ NGH-2410)",
	"mslugx":   "Metal Slug X - Super Vehicle-001 (NGM-2500 ~ NGH-2500)",
	"kof98":    "The King of Fighters '98 - The Slugfest / King of Fighters '98 - dream match never ends (NGM-2420)",
	"kof2002":  "The King of Fighters 2002 (NGM-2650 ~ NGH-2650)",
	"pacman":   "Pac-Man (Midway)",
	"mspacman": "Ms. Pac-Man",
	"sf2":      "Street Fighter II: The World Warrior (World 910522)",
	"sf2ce":    "Street Fighter II': Champion Edition (World 920513)",
	"ssf2t":    "Super Street Fighter II Turbo (World 940223)",
	"tmnt":     "Teenage Mutant Ninja Turtles (World 4 Players)",
	"simpsons": "The Simpsons (4 Players World, set 1)",
	"xmen":     "X-Men (4 Players ver EBA)",
	"dino":     "Cadillacs and Dinosaurs (World 930201)",
	"punisher": "The Punisher (World 930422)",
	"samsho":   "Samurai Shodown / Samurai Spirits (NGM-045)",
	"garou":    "Garou - Mark of the Wolves (NGM-2530)",
	"blazstar": "Blazing Star",
	"neobombe": "Neo Bomberman",
	"puzzledp": "Puzzle De Pon!",
	"invaders": "Space Invaders / Space Invaders M",
	"asteroid": "Asteroids (rev 4)",
	"digdug":   "Dig Dug (rev 2)",
	"frogger":  "Frogger",
	"qbert":    "Q*bert (US set 1)",
	"robotron": "Robotron: 2084 (Solid Blue label)",
}

// ArcadeNames maps short arcade set names to machine descriptions.
type ArcadeNames struct {
	names map[string]string
}

// NewArcadeNames returns a table seeded with the built-in names.
func NewArcadeNames() *ArcadeNames {
	an := &ArcadeNames{names: make(map[string]string, len(builtinArcadeNames))}
	for k, v := range builtinArcadeNames {
		an.names[k] = v
	}
	return an
}

// Lookup returns the description registered for raw.
func (a *ArcadeNames) Lookup(raw string) (string, bool) {
	if a == nil {
		return "", false
	}
	v, ok := a.names[strings.ToLower(raw)]
	return v, ok
}

// Len returns the number of known names.
func (a *ArcadeNames) Len() int {
	return len(a.names)
}

// AddMame merges playable machines of a MAME DAT.
func (a *ArcadeNames) AddMame(df *MameDataFile) int {
	added := 0
	for _, m := range df.AllMachines() {
		if !m.Playable() || a.add(m.Name, m.Description) {
			continue
		}
		added++
	}
	return added
}

// AddFBNeo merges non-BIOS games of a FinalBurn Neo DAT.
func (a *ArcadeNames) AddFBNeo(df *DataFile) int {
	if df == nil {
		return 0
	}
	added := 0
	for _, g := range df.Games {
		if g.IsBios == "yes" || a.add(g.Name, g.Description) {
			continue
		}
		added++
	}
	return added
}

// add stores the name and reports whether it was skipped.
func (a *ArcadeNames) add(name, desc string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	desc = strings.TrimSpace(desc)
	if name == "" || desc == "" {
		return true
	}
	a.names[name] = desc
	return false
}

// LoadArcadeNames builds the table from the built-ins plus the given DAT
// files. Empty paths are skipped; unreadable DATs are logged and skipped.
func LoadArcadeNames(ctx context.Context, mamePath, fbneoPath string) *ArcadeNames {
	an := NewArcadeNames()
	logger := logutil.GetLogger(ctx)
	if mamePath != "" {
		df, err := NewMameParser().ParseFile(mamePath)
		if err != nil {
			logger.Error("load mame dat failed", zap.String("path", mamePath), zap.Error(err))
		} else {
			logger.Info("mame dat loaded", zap.String("path", mamePath), zap.Int("names", an.AddMame(df)))
		}
	}
	if fbneoPath != "" {
		df, err := NewParser().ParseFile(fbneoPath)
		if err != nil {
			logger.Error("load fbneo dat failed", zap.String("path", fbneoPath), zap.Error(err))
		} else {
			logger.Info("fbneo dat loaded", zap.String("path", fbneoPath), zap.Int("names", an.AddFBNeo(df)))
		}
	}
	return an
}
