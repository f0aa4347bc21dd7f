package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/hamsci/lstid-detect/internal/heatmap"
)

// sample is one CSV row: time, range_km, value
type sample struct {
	Time    time.Time
	RangeKm float64
	Value   float64
}

func main() {
	var (
		csvFile  = flag.String("csv", "", "CSV file with time,range_km,value rows (required)")
		dateFlag = flag.String("date", "", "Date the frame belongs to, YYYY-MM-DD (required)")
		cacheDir = flag.String("cache", "cache", "Heatmap cache directory")
	)
	flag.Parse()

	if *csvFile == "" || *dateFlag == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -csv <spots.csv> -date YYYY-MM-DD [-cache dir]\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	date, err := time.Parse("2006-01-02", *dateFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid -date %q: %v\n", *dateFlag, err)
		os.Exit(1)
	}

	f, err := os.Open(*csvFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening CSV: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	samples, err := readSamples(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading CSV: %v\n", err)
		os.Exit(1)
	}

	frame, err := buildFrame(samples)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building frame: %v\n", err)
		os.Exit(1)
	}

	provider := heatmap.NewFileProvider(*cacheDir)
	if err := provider.Put(date, frame); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing cache: %v\n", err)
		os.Exit(1)
	}

	nRange, nTime := frame.Dims()
	fmt.Printf("Wrote %dx%d frame (%d samples) to %s\n", nRange, nTime, len(samples), provider.Path(date))
}

// readSamples parses rows of RFC 3339 time, range in km and intensity. A
// header row is skipped.
func readSamples(r io.Reader) ([]sample, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 3

	var samples []sample
	for line := 1; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		t, err := time.Parse(time.RFC3339, rec[0])
		if err != nil {
			if line == 1 {
				continue
			}
			return nil, fmt.Errorf("line %d: bad time: %w", line, err)
		}
		rangeKm, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad range: %w", line, err)
		}
		value, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad value: %w", line, err)
		}
		samples = append(samples, sample{Time: t.UTC(), RangeKm: rangeKm, Value: value})
	}
	return samples, nil
}

// buildFrame places samples on the grid of their distinct times and ranges.
// Cells without a sample are NaN; repeated cells are summed.
func buildFrame(samples []sample) (*heatmap.Frame, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("no samples")
	}

	timeIdx := make(map[time.Time]int)
	rangeIdx := make(map[float64]int)
	var times []time.Time
	var ranges []float64
	for _, s := range samples {
		if _, ok := timeIdx[s.Time]; !ok {
			timeIdx[s.Time] = 0
			times = append(times, s.Time)
		}
		if _, ok := rangeIdx[s.RangeKm]; !ok {
			rangeIdx[s.RangeKm] = 0
			ranges = append(ranges, s.RangeKm)
		}
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	sort.Float64s(ranges)
	for i, t := range times {
		timeIdx[t] = i
	}
	for i, r := range ranges {
		rangeIdx[r] = i
	}

	frame := &heatmap.Frame{
		Data:     make([][]float64, len(ranges)),
		RangesKm: ranges,
		Times:    times,
	}
	for i := range frame.Data {
		frame.Data[i] = make([]float64, len(times))
		for j := range frame.Data[i] {
			frame.Data[i][j] = math.NaN()
		}
	}
	for _, s := range samples {
		cell := &frame.Data[rangeIdx[s.RangeKm]][timeIdx[s.Time]]
		if math.IsNaN(*cell) {
			*cell = 0
		}
		*cell += s.Value
	}
	return frame, frame.Validate()
}
