package h3mapper

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/geoalign/internal/core/model"
)

// ParseCell parses an H3 hex identifier.
func ParseCell(s string) (h3.Cell, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parse cell: %w", err)
	}
	c := h3.Cell(v)
	if !c.IsValid() {
		return 0, fmt.Errorf("invalid h3 cell %q", s)
	}
	return c, nil
}

func (m *Mapper) ToParent(c h3.Cell, parentRes int) (h3.Cell, error) {
	if err := validateRes(parentRes); err != nil {
		return 0, err
	}
	if !c.IsValid() {
		return 0, fmt.Errorf("invalid h3 cell %s", c)
	}
	curRes := c.Resolution()
	if parentRes > curRes {
		return 0, fmt.Errorf("parentRes %d must be <= cell resolution %d", parentRes, curRes)
	}
	if parentRes == curRes {
		return c, nil
	}

	// traverse up to the requested parent resolution
	p, err := c.Parent(parentRes)
	if err != nil {
		return 0, fmt.Errorf("h3 parent: %w", err)
	}
	return p, nil
}

func (m *Mapper) ToChildren(c h3.Cell, childRes int) (model.Cells, error) {
	if err := validateRes(childRes); err != nil {
		return nil, err
	}
	if !c.IsValid() {
		return nil, fmt.Errorf("invalid h3 cell %s", c)
	}
	curRes := c.Resolution()
	if childRes < curRes {
		return nil, fmt.Errorf("childRes %d must be >= cell resolution %d", childRes, curRes)
	}
	if childRes == curRes {
		return model.Cells{c}, nil
	}

	kids, err := c.Children(childRes)
	if err != nil {
		return nil, fmt.Errorf("h3 children: %w", err)
	}
	out := model.Cells(kids)
	// return sorted children
	slices.Sort(out)
	return slices.Compact(out), nil
}

// Rollup maps cells to their distinct ancestors at parentRes.
func (m *Mapper) Rollup(cells model.Cells, parentRes int) (model.Cells, error) {
	out := make(model.Cells, 0, len(cells))
	for _, c := range cells {
		p, err := m.ToParent(c, parentRes)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}
