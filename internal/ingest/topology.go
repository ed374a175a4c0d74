package ingest

import (
	"fmt"

	"github.com/mohammed-shakir/geoalign/internal/core/geoerr"
	"github.com/mohammed-shakir/geoalign/internal/core/model"
	"github.com/mohammed-shakir/geoalign/internal/kernel"
)

// CheckTopology reports self-intersections and other topology faults. It
// detects only; nothing is repaired.
func CheckTopology(g model.Geometry) error {
	ok, reason, err := kernel.Validity(g)
	if err != nil {
		return fmt.Errorf("topology check: %w", err)
	}
	if !ok {
		return &geoerr.InvalidGeometryError{Reason: "topology: " + reason}
	}
	return nil
}
