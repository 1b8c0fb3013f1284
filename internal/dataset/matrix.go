// Package dataset generates synthetic SDR datasets, computes their quality
// metrics and persists them as Arrow IPC bundles.
package dataset

import (
	"fmt"

	"github.com/nvandessel/spexplore/internal/errs"
)

// Matrix is a dense binary matrix with one sample (SDR) per row.
type Matrix struct {
	rows, cols int
	bits       []uint8
}

// NewMatrix returns a zeroed rows x cols matrix.
func NewMatrix(rows, cols int) *Matrix {
	return &Matrix{rows: rows, cols: cols, bits: make([]uint8, rows*cols)}
}

// FromRows builds a matrix from equally sized rows of 0/1 values.
func FromRows(rows [][]uint8) (*Matrix, error) {
	if len(rows) == 0 {
		return NewMatrix(0, 0), nil
	}
	m := NewMatrix(len(rows), len(rows[0]))
	for i, r := range rows {
		if len(r) != m.cols {
			return nil, fmt.Errorf("row %d: %w", i, &errs.BitMismatchError{Expected: m.cols, Actual: len(r)})
		}
		for j, v := range r {
			if v > 1 {
				return nil, fmt.Errorf("row %d col %d: value %d is not a bit", i, j, v)
			}
		}
		copy(m.bits[i*m.cols:], r)
	}
	return m, nil
}

// Dims returns the number of rows and columns.
func (m *Matrix) Dims() (rows, cols int) {
	return m.rows, m.cols
}

// At returns the bit at row i, column j.
func (m *Matrix) At(i, j int) uint8 {
	return m.bits[i*m.cols+j]
}

// Set stores bit v at row i, column j.
func (m *Matrix) Set(i, j int, v uint8) {
	m.bits[i*m.cols+j] = v
}

// Row returns row i. The slice aliases the matrix storage.
func (m *Matrix) Row(i int) []uint8 {
	return m.bits[i*m.cols : (i+1)*m.cols]
}

// Equal reports whether both matrices have the same shape and bits.
func (m *Matrix) Equal(o *Matrix) bool {
	if m.rows != o.rows || m.cols != o.cols {
		return false
	}
	for i := range m.bits {
		if m.bits[i] != o.bits[i] {
			return false
		}
	}
	return true
}

// CheckWidth returns a BitMismatchError when the matrix is not cols wide.
func (m *Matrix) CheckWidth(cols int) error {
	if m.cols != cols {
		return &errs.BitMismatchError{Expected: cols, Actual: m.cols}
	}
	return nil
}
