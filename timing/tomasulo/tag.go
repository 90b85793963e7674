// Package tomasulo implements the dynamic out-of-order scheduling engine:
// register alias table, reservation stations, load/store queues, reorder
// buffer, and the common data bus arbitration that ties them together.
//
// The engine sits between an in-order front end and a set of functional
// units. It advances in single-cycle steps: every Tick observes the one
// CDB broadcast of the cycle, issues ready work, and commits at most one
// instruction from the reorder buffer head.
package tomasulo

// ROBDepth is the number of reorder buffer slots and therefore the size
// of the tag namespace. Must be a power of two.
const ROBDepth = 32

// tagMask extracts a slot index from a wrapped pointer.
const tagMask = ROBDepth - 1

// Tag identifies one in-flight instruction's eventual result. It equals
// the instruction's reorder buffer slot index and is reused only after
// the owning entry retires.
type Tag uint8

// AgeOf returns the age of tag relative to the reorder buffer head,
// computed modulo the buffer depth. Age 0 is the head entry itself.
func AgeOf(tag, head Tag) uint8 {
	return uint8(tag-head) & tagMask
}

// YoungerThan reports whether tag is strictly younger than boundary,
// both measured from head. This is the single age comparison used by
// every component during a partial flush.
func YoungerThan(tag, boundary, head Tag) bool {
	return AgeOf(tag, head) > AgeOf(boundary, head)
}
