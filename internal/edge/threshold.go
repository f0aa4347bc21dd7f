package edge

import "sort"

// StackOptions selects how each intensity level is turned into an edge.
type StackOptions struct {
	// SelectMin takes the first range index where the level test is
	// false. Otherwise the first index where it is true is taken, the
	// argmax of the test mask.
	SelectMin bool

	// Exact tests "value <= level" instead of "value != level". The latter
	// gives smoother results but the same index can be picked by several
	// levels.
	Exact bool
}

// DefaultStackOptions returns the options the detector is tuned for.
func DefaultStackOptions() StackOptions {
	return StackOptions{SelectMin: true, Exact: false}
}

// Levels returns the distinct values of frame in ascending order.
func Levels(frame [][]int) []int {
	seen := make(map[int]struct{})
	for _, row := range frame {
		for _, v := range row {
			seen[v] = struct{}{}
		}
	}
	levels := make([]int, 0, len(seen))
	for v := range seen {
		levels = append(levels, v)
	}
	sort.Ints(levels)
	return levels
}

// StackThresholds computes one edge per intensity level present in frame.
// frame is indexed [range][time]; the result is [level][time] and holds
// range indices. A column with no qualifying index yields 0.
func StackThresholds(frame [][]int, opts StackOptions) ([][]int, error) {
	nRange := len(frame)
	nTime := 0
	if nRange > 0 {
		nTime = len(frame[0])
	}
	frameShape := [2]int{nRange, nTime}

	levels := Levels(frame)
	stack := make([][]int, 0, len(levels))
	for _, level := range levels {
		edge := make([]int, nTime)
		for col := 0; col < nTime; col++ {
			edge[col] = levelEdge(frame, col, level, opts)
		}

		edgeShape := [2]int{1, len(edge)}
		if maxDim(edgeShape) != maxDim(frameShape) {
			return nil, &ShapeError{EdgeShape: edgeShape, FrameShape: frameShape}
		}
		stack = append(stack, edge)
	}
	return stack, nil
}

func levelEdge(frame [][]int, col, level int, opts StackOptions) int {
	for row := range frame {
		v := frame[row][col]
		var pass bool
		if opts.Exact {
			pass = v <= level
		} else {
			pass = v != level
		}
		if pass != opts.SelectMin {
			return row
		}
	}
	return 0
}

func maxDim(shape [2]int) int {
	if shape[0] > shape[1] {
		return shape[0]
	}
	return shape[1]
}
