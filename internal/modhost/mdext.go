package modhost

import (
	"github.com/palisade-irc/palisaded/internal/event"
)

// Item is an opaque handle to a reserved slice of a host type's extension
// area, returned by ExtHeader.CreateItem. Modules keep the handle and use
// Offset/Size to slice into an Extension's bytes.
type Item struct {
	offset int
	size   int
}

func (it *Item) Offset() int { return it.offset }
func (it *Item) Size() int   { return it.size }

// Extension is the per-object extension area for one live host instance
// (a Client, Channel, …). It is a flat byte arena partitioned by the
// header's items, mirroring mdext's "mdext + item->offset" addressing.
type Extension struct {
	data []byte
}

// Slice returns the bytes owned by item within this extension.
func (e *Extension) Slice(it *Item) []byte {
	return e.data[it.offset : it.offset+it.size]
}

// ExtHeader describes the extension layout shared by every live instance of
// one host type (Client, Channel, Server, …), grounded on
// original_source/source/module.c's create_mdext_item/destroy_mdext_item.
// Unlike the C original's pull-based iterator symbol, live instances
// register themselves with the header (Alloc/Free) when allocated and
// freed, which is the idiomatic Go shape of the same "walk every live
// instance" requirement (Design Notes: "index instances via the
// host-type iterator the header already references").
type ExtHeader struct {
	name    string
	size    int
	items   []*Item
	live    []*Extension
	Create  *event.Event // fires with the new *Extension on Alloc
	Destroy *event.Event // fires with the *Extension on Free
}

func NewExtHeader(name string) *ExtHeader {
	return &ExtHeader{
		name:    name,
		Create:  event.New(name+".create", event.FlagNoReturn),
		Destroy: event.New(name+".destroy", event.FlagNoReturn),
	}
}

func (h *ExtHeader) Size() int { return h.size }

// CreateItem reserves size bytes for a new module, growing every live
// instance's extension area by size and zero-filling the new suffix.
func (h *ExtHeader) CreateItem(size int) *Item {
	item := &Item{offset: h.size, size: size}
	h.size += size
	h.items = append(h.items, item)

	for _, ext := range h.live {
		grown := make([]byte, h.size)
		copy(grown, ext.data)
		ext.data = grown
	}

	return item
}

// DestroyItem releases item's bytes, shrinking every live instance and
// sliding subsequent items' offsets down by item.size, mirroring the
// memmove-then-shrink dance in destroy_mdext_item.
func (h *ExtHeader) DestroyItem(item *Item) {
	idx := -1
	for i, it := range h.items {
		if it == item {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}

	for _, ext := range h.live {
		if item.offset+item.size != h.size {
			copy(ext.data[item.offset:], ext.data[item.offset+item.size:h.size])
		}
		ext.data = ext.data[:h.size-item.size]
	}

	h.size -= item.size
	h.items = append(h.items[:idx], h.items[idx+1:]...)
	for _, it := range h.items {
		if it.offset > item.offset {
			it.offset -= item.size
		}
	}
}

// Alloc creates a new extension area for a freshly created host instance
// and fires the create event. Call exactly once per instance.
func (h *ExtHeader) Alloc() *Extension {
	ext := &Extension{data: make([]byte, h.size)}
	h.live = append(h.live, ext)
	h.Create.Fire(ext)
	return ext
}

// Free releases a host instance's extension area and fires the destroy
// event. Call exactly once, when the owning instance is destroyed.
func (h *ExtHeader) Free(ext *Extension) {
	h.Destroy.Fire(ext)
	for i, e := range h.live {
		if e == ext {
			h.live = append(h.live[:i], h.live[i+1:]...)
			break
		}
	}
}
