package metadata

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// UnknownFieldError is returned when a key is not part of a record's schema.
type UnknownFieldError struct {
	Key  string
	Kind Kind
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown %s metadata field %q", e.Kind, e.Key)
}

// Record is a typed key/value bag built against one schema kind. Values are
// held in their canonical text form.
type Record struct {
	kind    Kind
	values  map[string]string
	changed bool
}

// NewRecord returns a record with game defaults applied first and the
// defaults of kind applied on top.
func NewRecord(kind Kind) *Record {
	r := &Record{kind: kind, values: make(map[string]string, len(gameFields))}
	for _, f := range gameFields {
		r.values[f.Key] = f.Default
	}
	if kind != KindGame {
		for _, f := range FieldsFor(kind) {
			r.values[f.Key] = f.Default
		}
	}
	return r
}

// RecordFromColumns builds a record from stored column values without
// marking it changed. Columns outside the game schema are ignored and values
// that fail to parse keep their raw text.
func RecordFromColumns(kind Kind, cols map[string]string) *Record {
	r := NewRecord(kind)
	for _, f := range gameFields {
		v, ok := cols[f.Key]
		if !ok {
			continue
		}
		if cv, err := canonical(f, v); err == nil {
			r.values[f.Key] = cv
		} else {
			r.values[f.Key] = v
		}
	}
	return r
}

func (r *Record) Kind() Kind {
	return r.kind
}

func (r *Record) spec(key string) (FieldSpec, error) {
	f, ok := FieldFor(r.kind, key)
	if !ok {
		return FieldSpec{}, &UnknownFieldError{Key: key, Kind: r.kind}
	}
	return f, nil
}

// Get returns the canonical text of key.
func (r *Record) Get(key string) (string, error) {
	if _, err := r.spec(key); err != nil {
		return "", err
	}
	return r.values[key], nil
}

// GetInt parses key as an integer. An empty value reads as zero.
func (r *Record) GetInt(key string) (int, error) {
	v, err := r.Get(key)
	if err != nil || v == "" {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("field %s: %w", key, err)
	}
	return n, nil
}

// GetFloat parses key as a float. An empty value reads as zero.
func (r *Record) GetFloat(key string) (float64, error) {
	v, err := r.Get(key)
	if err != nil || v == "" {
		return 0, err
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("field %s: %w", key, err)
	}
	return f, nil
}

func (r *Record) GetBool(key string) (bool, error) {
	v, err := r.Get(key)
	if err != nil || v == "" {
		return false, err
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("field %s: %w", key, err)
	}
	return b, nil
}

// GetTime parses key as a timestamp. An empty value reads as the zero time.
func (r *Record) GetTime(key string) (time.Time, error) {
	v, err := r.Get(key)
	if err != nil {
		return time.Time{}, err
	}
	return ParseTime(v)
}

// Set stores value in canonical form and marks the record changed.
func (r *Record) Set(key, value string) error {
	f, err := r.spec(key)
	if err != nil {
		return err
	}
	cv, err := canonical(f, value)
	if err != nil {
		return fmt.Errorf("field %s: %w", key, err)
	}
	r.values[key] = cv
	r.changed = true
	return nil
}

func (r *Record) SetInt(key string, v int) error {
	return r.Set(key, strconv.Itoa(v))
}

func (r *Record) SetTime(key string, t time.Time) error {
	return r.Set(key, FormatStoreTime(t))
}

// Name returns the name field, which every schema carries.
func (r *Record) Name() string {
	return r.values["name"]
}

func (r *Record) Changed() bool {
	return r.changed
}

func (r *Record) ResetChanged() {
	r.changed = false
}

// Fields returns the schema of this record's kind.
func (r *Record) Fields() []FieldSpec {
	return FieldsFor(r.kind)
}

// IsDefault reports whether key holds its default value.
func (r *Record) IsDefault(key string) bool {
	f, ok := FieldFor(r.kind, key)
	if !ok {
		return false
	}
	return r.values[key] == f.Default
}

// IsAllDefault reports whether every field of the schema holds its default.
func (r *Record) IsAllDefault() bool {
	for _, f := range FieldsFor(r.kind) {
		if r.values[f.Key] != f.Default {
			return false
		}
	}
	return true
}

// Columns returns a value for every game field, as persisted by the store.
func (r *Record) Columns() map[string]string {
	out := make(map[string]string, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// Clone returns an independent copy.
func (r *Record) Clone() *Record {
	return &Record{kind: r.kind, values: r.Columns(), changed: r.changed}
}

func canonical(f FieldSpec, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		if f.Type.IsTime() {
			return "", nil
		}
		return f.Default, nil
	}
	switch f.Type {
	case Integer:
		if n, err := strconv.Atoi(value); err == nil {
			return strconv.Itoa(n), nil
		}
		fv, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return "", err
		}
		return strconv.Itoa(int(fv)), nil
	case Float, Rating:
		fv, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return "", err
		}
		return strconv.FormatFloat(fv, 'f', 6, 64), nil
	case Boolean:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return "", err
		}
		return strconv.FormatBool(b), nil
	case Date, DateTime:
		t, err := ParseTime(value)
		if err != nil {
			return "", err
		}
		return FormatStoreTime(t), nil
	}
	return value, nil
}
