package shogi

type vector struct {
	row int
	col int
}

var orthVectors = []vector{
	{row: 1, col: 0},
	{row: -1, col: 0},
	{row: 0, col: 1},
	{row: 0, col: -1},
}

var diagVectors = []vector{
	{row: 1, col: 1},
	{row: 1, col: -1},
	{row: -1, col: 1},
	{row: -1, col: -1},
}

var kingVectors = append(append([]vector{}, orthVectors...), diagVectors...)

// The tables below depend on which way is forward: dir is -1 for black, +1 for white.

func goldVectors(dir int) []vector {
	return []vector{
		{row: dir, col: 0},
		{row: dir, col: 1},
		{row: dir, col: -1},
		{row: 0, col: 1},
		{row: 0, col: -1},
		{row: -dir, col: 0},
	}
}

func silverVectors(dir int) []vector {
	return []vector{
		{row: dir, col: 0},
		{row: dir, col: 1},
		{row: dir, col: -1},
		{row: -dir, col: 1},
		{row: -dir, col: -1},
	}
}

func knightVectors(dir int) []vector {
	return []vector{
		{row: dir * 2, col: 1},
		{row: dir * 2, col: -1},
	}
}

func forwardVector(dir int) []vector {
	return []vector{{row: dir, col: 0}}
}
