package ldu

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestAddressing_OwnerStart(t *testing.T) {
	{ // Every face lies in exactly one owner range, and that range is its owner's
		for _, la := range []*Addressing{
			chainAddressing(5, nil),
			gridAddressing(4, 3),
			gridAddressing(7, 1),
		} {
			var (
				seen     = make([]int, la.NFaces())
				nCells   = la.Size()
				ownStart = la.OwnerStartAddr()
			)
			assert.Equal(t, 0, ownStart[0])
			assert.Equal(t, la.NFaces(), ownStart[nCells])
			for cell := 0; cell < nCells; cell++ {
				assert.LessOrEqual(t, la.OwnerStart(cell), la.OwnerStart(cell+1))
				for face := la.OwnerStart(cell); face < la.OwnerStart(cell+1); face++ {
					assert.Equal(t, cell, la.Owner(face))
					seen[face]++
				}
			}
			for face, count := range seen {
				assert.Equal(t, 1, count, "face %d", face)
			}
		}
	}
	{ // Cells without owned faces produce empty ranges
		la := MustAddressing(4, []int{0, 0, 2}, []int{1, 3, 3}, nil)
		assert.Equal(t, []int{0, 2, 2, 3, 3}, la.OwnerStartAddr())
	}
	{ // Empty addressing
		la := MustAddressing(3, []int{}, []int{}, nil)
		assert.Equal(t, []int{0, 0, 0, 0}, la.OwnerStartAddr())
		assert.Equal(t, 0, la.NFaces())
	}
}

func TestAddressing_Losort(t *testing.T) {
	la := gridAddressing(3, 3)
	var (
		losort      = la.LosortAddr()
		losortStart = la.LosortStartAddr()
		seen        = make([]bool, la.NFaces())
	)
	for cell := 0; cell < la.Size(); cell++ {
		prev := -1
		for i := losortStart[cell]; i < losortStart[cell+1]; i++ {
			face := losort[i]
			assert.Equal(t, cell, la.Neighbour(face))
			assert.Greater(t, face, prev)
			prev = face
			seen[face] = true
		}
	}
	for face, ok := range seen {
		assert.True(t, ok, "face %d missing from losort", face)
	}
}

func TestAddressing_Errors(t *testing.T) {
	{ // Face 2 returns to cell 0 after cell 1's faces
		_, err := NewAddressing(4, []int{0, 1, 0}, []int{1, 2, 3}, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNonContiguousOwner))
		assert.Contains(t, err.Error(), "face 2")
		assert.Panics(t, func() {
			MustAddressing(4, []int{0, 1, 0}, []int{1, 2, 3}, nil)
		})
	}
	{ // All violations are reported
		_, err := NewAddressing(3, []int{0, 5, 2}, []int{0, 1, -1}, [][]int{{0, 3}})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrAddressOutOfRange))
		assert.Len(t, multierr.Errors(err), 5)
	}
	{ // Face 1 runs from cell 2 down to cell 1
		_, err := NewAddressing(3, []int{0, 2}, []int{1, 1}, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrLowerUpperOrder))
		assert.Len(t, multierr.Errors(err), 1)
		assert.Contains(t, err.Error(), "face 1 owner 2, neighbour 1")
		assert.Panics(t, func() {
			MustAddressing(3, []int{0, 2}, []int{1, 1}, nil)
		})
	}
	{ // Mismatched owner and neighbour lengths
		_, err := NewAddressing(3, []int{0, 1}, []int{1}, nil)
		assert.True(t, errors.Is(err, ErrSizeMismatch))
	}
}
