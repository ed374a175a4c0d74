package h3mapper

import (
	"reflect"
	"slices"
	"testing"

	h3 "github.com/uber/h3-go/v4"
)

func TestHierarchy_RoundTrip_ParentChildren(t *testing.T) {
	m := New()

	baseRes := 8
	cell, err := h3.LatLngToCell(h3.LatLng{Lat: 59.3293, Lng: 18.0686}, baseRes)
	if err != nil {
		t.Fatalf("LatLngToCell: %v", err)
	}

	parent, err := m.ToParent(cell, baseRes-1)
	if err != nil {
		t.Fatalf("ToParent: %v", err)
	}

	children, err := m.ToChildren(parent, baseRes)
	if err != nil {
		t.Fatalf("ToChildren: %v", err)
	}
	if !slices.Contains(children, cell) {
		t.Fatalf("children at res=%d did not include original cell %s", baseRes, cell)
	}
	if !slices.IsSorted(children) {
		t.Fatalf("children must be sorted")
	}
}

func TestHierarchy_IdempotenceAndDeterminism(t *testing.T) {
	m := New()

	baseRes := 7
	cell, err := h3.LatLngToCell(h3.LatLng{Lat: 55.6050, Lng: 13.0038}, baseRes)
	if err != nil {
		t.Fatalf("LatLngToCell: %v", err)
	}

	p, err := m.ToParent(cell, baseRes)
	if err != nil {
		t.Fatalf("ToParent same-res: %v", err)
	}
	if p != cell {
		t.Fatalf("expected ToParent same-res to return input cell")
	}

	kids, err := m.ToChildren(cell, baseRes)
	if err != nil {
		t.Fatalf("ToChildren same-res: %v", err)
	}
	if len(kids) != 1 || kids[0] != cell {
		t.Fatalf("expected ToChildren same-res to return [%s], got %v", cell, kids)
	}

	k1, _ := m.ToChildren(cell, baseRes+1)
	k2, _ := m.ToChildren(cell, baseRes+1)
	if !reflect.DeepEqual(k1, k2) {
		t.Fatalf("expected identical children slices for repeated calls")
	}
}

func TestHierarchy_BadTransitions(t *testing.T) {
	m := New()
	cell, err := h3.LatLngToCell(h3.LatLng{Lat: 57.7089, Lng: 11.9746}, 9)
	if err != nil {
		t.Fatalf("LatLngToCell: %v", err)
	}

	if _, err := m.ToParent(cell, 10); err == nil {
		t.Fatalf("expected error for parentRes > current res")
	}
	if _, err := m.ToChildren(cell, 8); err == nil {
		t.Fatalf("expected error for childRes < current res")
	}
}

func TestRollup_CollapsesSiblings(t *testing.T) {
	m := New()
	cell, err := h3.LatLngToCell(h3.LatLng{Lat: 59.3293, Lng: 18.0686}, 6)
	if err != nil {
		t.Fatalf("LatLngToCell: %v", err)
	}
	kids, err := m.ToChildren(cell, 8)
	if err != nil {
		t.Fatalf("ToChildren: %v", err)
	}
	up, err := m.Rollup(kids, 6)
	if err != nil {
		t.Fatalf("Rollup: %v", err)
	}
	if len(up) != 1 || up[0] != cell {
		t.Fatalf("rollup=%v want [%s]", up, cell)
	}
}

func TestParseCell(t *testing.T) {
	cell, err := h3.LatLngToCell(h3.LatLng{Lat: 59.3293, Lng: 18.0686}, 9)
	if err != nil {
		t.Fatalf("LatLngToCell: %v", err)
	}
	got, err := ParseCell(cell.String())
	if err != nil {
		t.Fatalf("ParseCell: %v", err)
	}
	if got != cell {
		t.Fatalf("ParseCell=%s want %s", got, cell)
	}
	if _, err := ParseCell("not-a-cell"); err == nil {
		t.Fatalf("expected error for garbage input")
	}
}
