package botdispatch

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// ErrInvalidJSON is returned when the input is not valid JSON.
var ErrInvalidJSON = errors.New("invalid JSON")

// Inspector examines raw bytes and returns a View for field queries.
type Inspector interface {
	Inspect(raw []byte) (View, error)
}

// View provides format-agnostic field access for discriminator matching.
type View interface {
	// HasField returns true if the path exists in the message.
	HasField(path string) bool

	// GetString returns the string value at path, or false if not found
	// or not a string.
	GetString(path string) (string, bool)

	// GetInt returns the integer value at path, or false if not found or
	// not a number.
	GetInt(path string) (int64, bool)

	// GetBytes returns the raw bytes at path, or false if not found.
	// For JSON, this returns the raw JSON value (including quotes for strings).
	GetBytes(path string) ([]byte, bool)
}

// JSONInspector returns an Inspector that uses gjson for field access.
func JSONInspector() Inspector {
	return jsonInspector{}
}

type jsonInspector struct{}

func (jsonInspector) Inspect(raw []byte) (View, error) {
	if !gjson.ValidBytes(raw) {
		return nil, ErrInvalidJSON
	}
	return jsonView{raw: raw}, nil
}

type jsonView struct {
	raw []byte
}

func (v jsonView) HasField(path string) bool {
	return gjson.GetBytes(v.raw, path).Exists()
}

func (v jsonView) GetString(path string) (string, bool) {
	r := gjson.GetBytes(v.raw, path)
	if !r.Exists() {
		return "", false
	}
	if r.Type != gjson.String {
		return "", false
	}
	return r.String(), true
}

func (v jsonView) GetInt(path string) (int64, bool) {
	r := gjson.GetBytes(v.raw, path)
	if !r.Exists() || r.Type != gjson.Number {
		return 0, false
	}
	return r.Int(), true
}

func (v jsonView) GetBytes(path string) ([]byte, bool) {
	r := gjson.GetBytes(v.raw, path)
	if !r.Exists() {
		return nil, false
	}
	return []byte(r.Raw), true
}

// RawUpdate is what KindOf learns about an undecoded update. View stays
// usable for further checks such as Discriminators.
type RawUpdate struct {
	ID   int64
	Kind UpdateKind
	View View
}

// KindOf classifies a raw JSON update by its payload field without decoding
// it, so unsupported kinds can be dropped before the full unmarshal.
func KindOf(raw []byte) (RawUpdate, error) {
	view, err := JSONInspector().Inspect(raw)
	if err != nil {
		return RawUpdate{}, err
	}
	id, ok := view.GetInt("update_id")
	if !ok {
		return RawUpdate{}, fmt.Errorf("%w: missing update_id", ErrInvalidJSON)
	}
	return RawUpdate{ID: id, Kind: rawKind(view), View: view}, nil
}
