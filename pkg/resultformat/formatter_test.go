package resultformat

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/hamsci/lstid-detect/internal/timeseries"
)

type sample struct {
	Name   string            `json:"name"`
	R2     float64           `json:"r2"`
	Series timeseries.Series `json:"series"`
}

func testSample() sample {
	t0 := time.Date(2017, 11, 3, 13, 0, 0, 0, time.UTC)
	return sample{
		Name: "day",
		R2:   math.NaN(),
		Series: timeseries.Series{
			Times:  []time.Time{t0, t0.Add(time.Minute)},
			Values: []float64{1.5, math.Inf(1)},
		},
	}
}

func TestWriteJSONNullsNonFinite(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter(false).Write(&buf, JSON, testSample()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	var got struct {
		Name   string `json:"name"`
		R2     *float64
		Series struct {
			Times  []time.Time `json:"times"`
			Values []*float64  `json:"values"`
		} `json:"series"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if got.Name != "day" || got.R2 != nil {
		t.Errorf("expected name day and null r2, got %s %v", got.Name, got.R2)
	}
	if len(got.Series.Values) != 2 || got.Series.Values[0] == nil || *got.Series.Values[0] != 1.5 || got.Series.Values[1] != nil {
		t.Errorf("unexpected series values %v", got.Series.Values)
	}
	if len(got.Series.Times) != 2 || !got.Series.Times[1].Equal(testSample().Series.Times[1]) {
		t.Errorf("unexpected series times %v", got.Series.Times)
	}
}

func TestWriteMsgPackUsesJSONTags(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter(false).Write(&buf, MsgPack, testSample()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	var got map[string]interface{}
	if err := msgpack.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got["name"] != "day" {
		t.Errorf("expected json tag names, got keys %v", got)
	}
	if r2, ok := got["r2"].(float64); !ok || !math.IsNaN(r2) {
		t.Errorf("expected NaN r2 to survive MessagePack, got %v", got["r2"])
	}
}

type interval struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

func TestMsgPackStableMapOrder(t *testing.T) {
	data := struct {
		Intervals map[string]interval `json:"intervals"`
		Params    map[string]float64  `json:"params"`
	}{
		Intervals: map[string]interval{},
		Params:    map[string]float64{},
	}
	for _, k := range []string{"T_hr", "amplitude_km", "r2", "phase_hr", "offset_km", "slope_kmph", "a", "b", "c", "d"} {
		data.Intervals[k] = interval{Low: 1, High: math.NaN()}
		data.Params[k] = 2
	}

	var first bytes.Buffer
	if err := NewFormatter(false).Write(&first, MsgPack, data); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20; i++ {
		var buf bytes.Buffer
		if err := NewFormatter(false).Write(&buf, MsgPack, data); err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(buf.Bytes(), first.Bytes()) {
			t.Fatalf("encoding %d differs from the first", i)
		}
	}

	var decoded struct {
		Intervals map[string]interval `json:"intervals"`
	}
	dec := msgpack.NewDecoder(bytes.NewReader(first.Bytes()))
	dec.SetCustomStructTag("json")
	if err := dec.Decode(&decoded); err != nil {
		t.Fatal(err)
	}
	if iv := decoded.Intervals["r2"]; iv.Low != 1 || !math.IsNaN(iv.High) {
		t.Errorf("expected {1 NaN}, got %+v", iv)
	}
}

func TestIndentedJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter(true).Write(&buf, JSON, map[string]int{"a": 1}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "\n  \"a\": 1") {
		t.Errorf("expected indented output, got %q", buf.String())
	}
}

func TestFormats(t *testing.T) {
	tests := []struct {
		path     string
		expected Format
	}{
		{"out.json", JSON},
		{"out.msgpack", MsgPack},
		{"OUT.MP", MsgPack},
		{"out", JSON},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := FormatForPath(tt.path); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}

	if f, err := ParseFormat("msgpack"); err != nil || f != MsgPack {
		t.Errorf("expected msgpack, got %v %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Errorf("expected error for unknown format")
	}
	if MsgPack.ContentType() != "application/x-msgpack" || JSON.ContentType() != "application/json" {
		t.Errorf("unexpected content types")
	}
}
