// Package resultformat writes detection results as JSON or MessagePack.
package resultformat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Format is an output encoding.
type Format int

const (
	JSON Format = iota
	MsgPack
)

func (f Format) String() string {
	if f == MsgPack {
		return "msgpack"
	}
	return "json"
}

// ContentType returns the MIME type of the encoding.
func (f Format) ContentType() string {
	if f == MsgPack {
		return "application/x-msgpack"
	}
	return "application/json"
}

// ParseFormat accepts "json" or "msgpack".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json", "":
		return JSON, nil
	case "msgpack", "mp":
		return MsgPack, nil
	}
	return JSON, fmt.Errorf("unknown output format %q", s)
}

// FormatForPath picks MessagePack for .msgpack and .mp files and JSON
// otherwise.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".msgpack", ".mp":
		return MsgPack
	}
	return JSON
}

// Formatter handles encoding and writing results in JSON or MessagePack
// format. Both encodings use the json struct tags.
type Formatter struct {
	indent bool
}

// NewFormatter creates a new result formatter. indent pretty-prints JSON.
func NewFormatter(indent bool) *Formatter {
	return &Formatter{indent: indent}
}

// Write encodes data to w.
func (f *Formatter) Write(w io.Writer, format Format, data any) error {
	if format == MsgPack {
		return f.writeMsgPack(w, data)
	}
	return f.writeJSON(w, data)
}

// writeJSON goes through MessagePack first so that the float values JSON
// cannot represent (NaN marks missing samples throughout a result) can be
// written as null.
func (f *Formatter) writeJSON(w io.Writer, data any) error {
	generic, err := toGeneric(data)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	if f.indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(nullNonFinite(generic))
}

// writeMsgPack writes the generic form of data so the output has every map
// key sorted and equal reports encode to equal bytes.
func (f *Formatter) writeMsgPack(w io.Writer, data any) error {
	generic, err := toGeneric(data)
	if err != nil {
		return err
	}
	return newEncoder(w).Encode(generic)
}

// toGeneric re-decodes data into maps, slices and scalars. The encoder only
// sorts keys of maps with string, bool or interface values, and maps of
// structs come back as map[string]any.
func toGeneric(data any) (any, error) {
	var buf bytes.Buffer
	if err := newEncoder(&buf).Encode(data); err != nil {
		return nil, err
	}
	var generic any
	if err := msgpack.Unmarshal(buf.Bytes(), &generic); err != nil {
		return nil, fmt.Errorf("failed to decode intermediate encoding: %w", err)
	}
	return generic, nil
}

func newEncoder(w io.Writer) *msgpack.Encoder {
	encoder := msgpack.NewEncoder(w)
	encoder.SetCustomStructTag("json") // Use json tags for MessagePack
	encoder.SetSortMapKeys(true)
	return encoder
}

func nullNonFinite(v any) any {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
	case float32:
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return nil
		}
	case map[string]any:
		for k, e := range x {
			x[k] = nullNonFinite(e)
		}
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[fmt.Sprint(k)] = nullNonFinite(e)
		}
		return out
	case []any:
		for i, e := range x {
			x[i] = nullNonFinite(e)
		}
	}
	return v
}
