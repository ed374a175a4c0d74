// Package mapper converts between geometries and H3 cells.
package mapper

import (
	"github.com/mohammed-shakir/geoalign/internal/core/model"
)

type Interface interface {
	CellsForBBox(bb model.BBox, res int) (model.Cells, error)
	CellsCovering(g model.Geometry, res int) (model.Cells, error)
}
