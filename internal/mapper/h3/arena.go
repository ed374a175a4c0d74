package h3mapper

import (
	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/geoalign/internal/core/model"
)

// Arena interns cells into dense ids so per-feature cell sets can be held
// as sorted []uint32 and compared exactly. Not safe for concurrent use.
type Arena struct {
	ids   map[h3.Cell]uint32
	cells []h3.Cell
}

func NewArena(sizeHint int) *Arena {
	return &Arena{
		ids:   make(map[h3.Cell]uint32, sizeHint),
		cells: make([]h3.Cell, 0, sizeHint),
	}
}

// Intern returns the id of c, assigning the next id on first sight.
func (a *Arena) Intern(c h3.Cell) uint32 {
	if id, ok := a.ids[c]; ok {
		return id
	}
	id := uint32(len(a.cells))
	a.ids[c] = id
	a.cells = append(a.cells, c)
	return id
}

// InternAll interns cells in order. Because cells are sorted and ids are
// handed out on first sight, the result is sorted only if every cell is new;
// callers needing sorted ids should sort the result.
func (a *Arena) InternAll(cells model.Cells) []uint32 {
	out := make([]uint32, len(cells))
	for i, c := range cells {
		out[i] = a.Intern(c)
	}
	return out
}

func (a *Arena) Cell(id uint32) h3.Cell { return a.cells[id] }

func (a *Arena) Len() int { return len(a.cells) }
