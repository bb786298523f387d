package metadata

import "fmt"

// Kind selects the field schema a record is built against.
type Kind int

const (
	KindGame Kind = iota + 1
	KindFolder
	KindFilter
)

func (k Kind) String() string {
	switch k {
	case KindGame:
		return "game"
	case KindFolder:
		return "folder"
	case KindFilter:
		return "filter"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// FieldType describes how a field value is parsed and formatted.
type FieldType int

const (
	ShortString FieldType = iota + 1
	LongString
	ImagePath
	Integer
	Float
	Rating
	Boolean
	Date
	DateTime
)

// IsTime reports whether values of t are timestamps.
func (t FieldType) IsTime() bool {
	return t == Date || t == DateTime
}

// FieldSpec declares one metadata field.
type FieldSpec struct {
	Key       string
	Type      FieldType
	Default   string
	Statistic bool
	Label     string
}

var gameFields = []FieldSpec{
	{Key: "name", Type: ShortString, Label: "name"},
	{Key: "desc", Type: LongString, Label: "description"},
	{Key: "image", Type: ImagePath, Label: "image"},
	{Key: "video", Type: ImagePath, Label: "video"},
	{Key: "marquee", Type: ImagePath, Label: "marquee"},
	{Key: "thumbnail", Type: ImagePath, Label: "thumbnail"},
	{Key: "rating", Type: Rating, Default: "0.000000", Label: "rating"},
	{Key: "releasedate", Type: Date, Label: "release date"},
	{Key: "developer", Type: ShortString, Default: "unknown", Label: "developer"},
	{Key: "publisher", Type: ShortString, Default: "unknown", Label: "publisher"},
	{Key: "genre", Type: ShortString, Default: "unknown", Label: "genre"},
	{Key: "players", Type: Integer, Default: "1", Label: "players"},
	{Key: "favorite", Type: Boolean, Default: "false", Label: "favorite"},
	{Key: "hidden", Type: Boolean, Default: "false", Label: "hidden"},
	{Key: "kidgame", Type: Boolean, Default: "false", Label: "kidgame"},
	{Key: "playcount", Type: Integer, Default: "0", Statistic: true, Label: "play count"},
	{Key: "lastplayed", Type: DateTime, Statistic: true, Label: "last played"},
}

var folderFields = []FieldSpec{
	{Key: "name", Type: ShortString, Label: "name"},
	{Key: "desc", Type: LongString, Label: "description"},
	{Key: "image", Type: ImagePath, Label: "image"},
	{Key: "thumbnail", Type: ImagePath, Label: "thumbnail"},
	{Key: "video", Type: ImagePath, Label: "video"},
	{Key: "marquee", Type: ImagePath, Label: "marquee"},
	{Key: "rating", Type: Rating, Default: "0.000000", Label: "rating"},
	{Key: "releasedate", Type: Date, Label: "release date"},
	{Key: "developer", Type: ShortString, Default: "unknown", Label: "developer"},
	{Key: "publisher", Type: ShortString, Default: "unknown", Label: "publisher"},
	{Key: "genre", Type: ShortString, Default: "unknown", Label: "genre"},
	{Key: "players", Type: Integer, Default: "1", Label: "players"},
}

var filterFields = []FieldSpec{
	{Key: "name", Type: ShortString, Label: "name"},
	{Key: "desc", Type: LongString, Label: "description"},
	{Key: "image", Type: ImagePath, Label: "image"},
	{Key: "thumbnail", Type: ImagePath, Label: "thumbnail"},
}

func init() {
	if err := ValidateSchema(); err != nil {
		panic(err)
	}
}

// FieldsFor returns the ordered field list of kind. The returned slice is a copy.
func FieldsFor(kind Kind) []FieldSpec {
	var src []FieldSpec
	switch kind {
	case KindGame:
		src = gameFields
	case KindFolder:
		src = folderFields
	case KindFilter:
		src = filterFields
	default:
		return nil
	}
	out := make([]FieldSpec, len(src))
	copy(out, src)
	return out
}

// FieldFor looks up a single field of kind.
func FieldFor(kind Kind, key string) (FieldSpec, bool) {
	for _, f := range FieldsFor(kind) {
		if f.Key == key {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// ValidateSchema checks that every non-game schema is a subset of the game
// schema with matching field types.
func ValidateSchema() error {
	game := make(map[string]FieldSpec, len(gameFields))
	for _, f := range gameFields {
		if _, dup := game[f.Key]; dup {
			return fmt.Errorf("duplicate game field %s", f.Key)
		}
		game[f.Key] = f
	}
	for _, kind := range []Kind{KindFolder, KindFilter} {
		for _, f := range FieldsFor(kind) {
			g, ok := game[f.Key]
			if !ok {
				return fmt.Errorf("%s field %s is not a game field", kind, f.Key)
			}
			if g.Type != f.Type {
				return fmt.Errorf("%s field %s type differs from game field", kind, f.Key)
			}
		}
	}
	return nil
}
