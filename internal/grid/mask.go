package grid

import "fmt"

// Mask selects the cells to compute. A zero entry excludes its cell. A nil
// *Mask admits every cell.
type Mask struct {
	Rows int     `msgpack:"rows"`
	Cols int     `msgpack:"cols"`
	Data []uint8 `msgpack:"data"`
}

// NewMask wraps row-major mask data.
func NewMask(rows, cols int, data []uint8) (*Mask, error) {
	if rows*cols != len(data) {
		return nil, fmt.Errorf("%w: mask %dx%d with %d values", ErrShapeMismatch, rows, cols, len(data))
	}
	return &Mask{Rows: rows, Cols: cols, Data: data}, nil
}

// Check verifies the mask is aligned with g.
func (m *Mask) Check(g Geometry) error {
	if m == nil {
		return nil
	}
	if m.Rows != g.Rows() || m.Cols != g.Cols() || len(m.Data) != g.Cells() {
		return fmt.Errorf("%w: mask %dx%d, grid %dx%d", ErrShapeMismatch, m.Rows, m.Cols, g.Rows(), g.Cols())
	}
	return nil
}

// Allowed reports whether cell i should be computed.
func (m *Mask) Allowed(i int) bool {
	if m == nil {
		return true
	}
	return m.Data[i] != 0
}

// Count returns the number of admitted cells.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Data {
		if v != 0 {
			n++
		}
	}
	return n
}
