package db

import (
	"sort"
	"strings"
	"unicode"

	"github.com/mozillazg/go-pinyin"
	"github.com/xxxsen/gamedeck/internal/metadata"
)

// SortItem is what a sort comparator sees: the node and its stored record.
type SortItem struct {
	Node   FileNode
	Record *metadata.Record
}

// SortSpec is a named total order over the children of a folder.
type SortSpec struct {
	Description string
	Less        func(a, b SortItem) bool
}

var pinyinArgs = func() pinyin.Args {
	a := pinyin.NewArgs()
	a.Fallback = func(r rune, _ pinyin.Args) []string {
		return []string{string(r)}
	}
	return a
}()

// nameKey folds case and transliterates Han characters so CJK titles sort
// next to their latin spelling.
func nameKey(name string) string {
	for _, r := range name {
		if unicode.Is(unicode.Han, r) {
			return strings.ToLower(strings.Join(pinyin.LazyPinyin(name, pinyinArgs), ""))
		}
	}
	return strings.ToLower(name)
}

func itemName(it SortItem) string {
	return it.Node.nameFrom(it.Record)
}

func compareNames(a, b SortItem) int {
	ka, kb := nameKey(itemName(a)), nameKey(itemName(b))
	switch {
	case ka < kb:
		return -1
	case ka > kb:
		return 1
	}
	return strings.Compare(a.Node.ID(), b.Node.ID())
}

func byName(desc bool) func(a, b SortItem) bool {
	return func(a, b SortItem) bool {
		c := compareNames(a, b)
		if desc {
			return c > 0
		}
		return c < 0
	}
}

// byField orders folders first by name, then games by cmp with name as the
// tie breaker. Descending only reverses the field comparison.
func byField(cmp func(a, b *metadata.Record) int, desc bool) func(a, b SortItem) bool {
	return func(a, b SortItem) bool {
		fa, fb := a.Node.Kind() == Folder, b.Node.Kind() == Folder
		if fa != fb {
			return fa
		}
		if fa {
			return compareNames(a, b) < 0
		}
		c := cmp(a.Record, b.Record)
		if desc {
			c = -c
		}
		if c != 0 {
			return c < 0
		}
		return compareNames(a, b) < 0
	}
}

func floatField(key string) func(a, b *metadata.Record) int {
	return func(a, b *metadata.Record) int {
		x, _ := a.GetFloat(key)
		y, _ := b.GetFloat(key)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
}

func intField(key string) func(a, b *metadata.Record) int {
	return func(a, b *metadata.Record) int {
		x, _ := a.GetInt(key)
		y, _ := b.GetInt(key)
		return x - y
	}
}

// textField compares stored text; stored timestamps sort chronologically.
func textField(key string) func(a, b *metadata.Record) int {
	return func(a, b *metadata.Record) int {
		x, _ := a.Get(key)
		y, _ := b.Get(key)
		return strings.Compare(strings.ToLower(x), strings.ToLower(y))
	}
}

var sortCatalog = []SortSpec{
	{Description: "filename, ascending", Less: byName(false)},
	{Description: "filename, descending", Less: byName(true)},
	{Description: "rating, ascending", Less: byField(floatField("rating"), false)},
	{Description: "rating, descending", Less: byField(floatField("rating"), true)},
	{Description: "times played, ascending", Less: byField(intField("playcount"), false)},
	{Description: "times played, descending", Less: byField(intField("playcount"), true)},
	{Description: "last played, ascending", Less: byField(textField("lastplayed"), false)},
	{Description: "last played, descending", Less: byField(textField("lastplayed"), true)},
	{Description: "release date, ascending", Less: byField(textField("releasedate"), false)},
	{Description: "release date, descending", Less: byField(textField("releasedate"), true)},
	{Description: "genre, ascending", Less: byField(textField("genre"), false)},
	{Description: "genre, descending", Less: byField(textField("genre"), true)},
}

// Sorts returns the registered sorts in display order.
func Sorts() []SortSpec {
	out := make([]SortSpec, len(sortCatalog))
	copy(out, sortCatalog)
	return out
}

// SortAt returns the sort at index i, falling back to name ascending.
func SortAt(i int) SortSpec {
	if i < 0 || i >= len(sortCatalog) {
		return sortCatalog[0]
	}
	return sortCatalog[i]
}

func sortItems(items []SortItem, spec *SortSpec) {
	less := sortCatalog[0].Less
	if spec != nil && spec.Less != nil {
		less = spec.Less
	}
	sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
}
