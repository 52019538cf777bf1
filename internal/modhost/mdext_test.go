package modhost

import "testing"

// Allocating an item after instances already exist must grow every live
// instance's extension area in place, and destroying an item must shrink
// it back down and slide later items' offsets, mirroring
// create_mdext_item/destroy_mdext_item's resize-in-place behavior.
func TestExtHeaderResizeGrowsAndShrinksLiveInstances(t *testing.T) {
	h := NewExtHeader("client")

	first := h.CreateItem(4)
	e1 := h.Alloc()
	if len(e1.data) != 4 {
		t.Fatalf("len(e1.data) = %d, want 4", len(e1.data))
	}

	second := h.CreateItem(8)
	if len(e1.data) != 12 {
		t.Fatalf("growing the header should grow existing live instances: len(e1.data) = %d, want 12", len(e1.data))
	}
	e2 := h.Alloc()
	if len(e2.data) != 12 {
		t.Fatalf("len(e2.data) = %d, want 12", len(e2.data))
	}
	if second.Offset() != 4 || second.Size() != 8 {
		t.Fatalf("second item = offset %d size %d, want 4,8", second.Offset(), second.Size())
	}

	copy(e1.Slice(second), []byte("deadbeef"))
	h.DestroyItem(first)

	if len(e1.data) != 8 {
		t.Fatalf("destroying first item should shrink e1 to 8 bytes, got %d", len(e1.data))
	}
	if second.Offset() != 0 {
		t.Fatalf("second item's offset should slide down to 0, got %d", second.Offset())
	}
	if string(e1.Slice(second)) != "deadbeef" {
		t.Fatalf("surviving item's bytes should be preserved across shrink, got %q", e1.Slice(second))
	}

	h.Free(e1)
	h.Free(e2)
	if len(h.live) != 0 {
		t.Fatalf("len(h.live) = %d, want 0 after freeing both instances", len(h.live))
	}
}
