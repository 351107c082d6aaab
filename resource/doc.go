// Package resource provides a small generic handle table.
//
// Values are stored in slots addressed by integer handles. Removed slots are
// recycled through a free list, so a handle is only meaningful until the value
// it names is taken out of the table.
//
// # Handle Table
//
//	table := resource.NewTable[*Source]()
//
//	// Insert a value, get a handle
//	h, err := table.Insert(src)
//
//	// Retrieve value by handle
//	src, ok := table.Get(h)
//
//	// Detach the value; the handle becomes invalid
//	src, ok = table.Take(h)
//
// # Iteration
//
// Each visits live slots in slot order. The order is stable within one
// traversal, which is what readiness scans rely on. The callback must not
// insert into or take from the table it is iterating.
//
// # Ownership
//
// The table never destroys values. Whoever takes a value out owns it, and
// values still present when the table is closed remain the caller's to
// release; use Handles to collect them first.
package resource
