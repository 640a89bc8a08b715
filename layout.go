package divecore

import "github.com/divebridge/divecore/internal/layout"

// Layout is the static, per-device-model memory map: ringbuffer
// bounds, sentinel values, fixed addresses, and transfer sizing.
type Layout = layout.Layout

// Family identifies which wire protocol and extraction algorithm a
// Layout belongs to.
type Family = layout.Family

const (
	FamilyA = layout.FamilyA
	FamilyB = layout.FamilyB
)

// LayoutFamilyA and LayoutFamilyB are representative reference
// layouts exercising each family's traversal algorithm end to end;
// real integrations supply their own model-specific Layout values.
var (
	LayoutFamilyA = layout.FamilyALayout
	LayoutFamilyB = layout.FamilyBLayout
)
