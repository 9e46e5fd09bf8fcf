package physics

import "math"

// SpatialGrid is a uniform grid over the XZ plane for broad-phase collision
// detection. Objects are inserted by position and index, then nearby objects
// can be queried in O(1) per cell via a 3x3 neighborhood lookup.
//
// Cell size must be >= the maximum interaction distance between any two
// colliding objects so that all potential collisions are found within
// the 3x3 neighborhood.
type SpatialGrid struct {
	minX, minZ  float64
	invCellSize float64 // 1 / cellSize (precomputed to avoid division)
	cols        int
	rows        int
	cells       []gridCell
}

// gridCell stores the indices of objects that fall within a grid cell.
// The slice is reused between frames (reset to [:0]) to avoid allocations.
type gridCell struct {
	items []int
}

// NewSpatialGrid creates a grid covering the square [-halfExtent, halfExtent]
// on both axes. Positions outside it are clamped to the border cells.
func NewSpatialGrid(halfExtent, cellSize float64) *SpatialGrid {
	n := int(math.Ceil(2 * halfExtent / cellSize))
	if n < 1 {
		n = 1
	}
	return &SpatialGrid{
		minX:        -halfExtent,
		minZ:        -halfExtent,
		invCellSize: 1.0 / cellSize,
		cols:        n,
		rows:        n,
		cells:       make([]gridCell, n*n),
	}
}

// Clear removes all items from the grid without deallocating cell memory.
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i].items = g.cells[i].items[:0]
	}
}

// Insert adds an item (identified by index) at the given position.
func (g *SpatialGrid) Insert(x, z float64, index int) {
	col, row := g.posToCell(x, z)
	idx := row*g.cols + col
	g.cells[idx].items = append(g.cells[idx].items, index)
}

// QueryAround calls fn for each item index in the 3x3 cell neighborhood
// around the given position. If fn returns true, iteration stops early.
func (g *SpatialGrid) QueryAround(x, z float64, fn func(index int) bool) {
	col, row := g.posToCell(x, z)

	for r := row - 1; r <= row+1; r++ {
		if r < 0 || r >= g.rows {
			continue
		}
		rowOffset := r * g.cols

		for c := col - 1; c <= col+1; c++ {
			if c < 0 || c >= g.cols {
				continue
			}
			for _, itemIdx := range g.cells[rowOffset+c].items {
				if fn(itemIdx) {
					return
				}
			}
		}
	}
}

// posToCell converts a position to grid cell coordinates, clamped to range.
func (g *SpatialGrid) posToCell(x, z float64) (col, row int) {
	col = int(math.Floor((x - g.minX) * g.invCellSize))
	if col < 0 {
		col = 0
	} else if col >= g.cols {
		col = g.cols - 1
	}

	row = int(math.Floor((z - g.minZ) * g.invCellSize))
	if row < 0 {
		row = 0
	} else if row >= g.rows {
		row = g.rows - 1
	}

	return col, row
}
