package renderer

import (
	"sort"

	"github.com/Carmen-Shannon/oxy-graph/engine/core"
	"github.com/Carmen-Shannon/oxy-graph/engine/renderer/chunk"
	"github.com/Carmen-Shannon/oxy-graph/engine/renderer/object"
)

// lastIDs tracks, per slot, the id of the chunk last appended to one list. Consecutive chunks
// with the same id in the same slot are dropped.
type lastIDs struct {
	slots    [core.SlotCount]int64
	renderer int64
}

func newLastIDs() lastIDs {
	var l lastIDs
	for i := range l.slots {
		l.slots[i] = -1
	}
	l.renderer = -1
	return l
}

// buildObjectList flattens the live objects.
func (d *display) buildObjectList() {
	d.objectList = d.objectList[:0]
	d.objects.Each(func(o *object.Object) {
		d.objectList = append(d.objectList, o)
	})
}

// makeSortKeys computes the sort key of every object.
func (d *display) makeSortKeys() {
	for _, o := range d.objectList {
		o.ComputeSortKey()
	}
}

// sortObjects stable-sorts the object list by sort key.
func (d *display) sortObjects() {
	sort.SliceStable(d.objectList, func(i, j int) bool {
		return d.objectList[i].SortKey < d.objectList[j].SortKey
	})
}

// visible reports whether o passes the enabled, layer and tag filters.
func (d *display) visible(o *object.Object, flags core.Flags) bool {
	if o.Program == nil || o.SortKey == object.NoProgram {
		return false
	}
	if !flags.Enabled || !o.LayerEnabled() {
		return false
	}
	if d.tagFilter != nil {
		if tag := o.TagName(); tag != nil && !tag.Match(d.tagFilter, d.tagMask) {
			return false
		}
	}
	return true
}

// buildDrawLists rebuilds the opaque, transparent and pick lists from the sorted objects.
func (d *display) buildDrawLists() error {
	d.opaqueList = d.opaqueList[:0]
	d.transparentList = d.transparentList[:0]
	d.pickList = d.pickList[:0]
	d.transparentObjs = d.transparentObjs[:0]
	d.opaqueObjs, d.pickObjs = 0, 0

	drawIDs := newLastIDs()
	pickIDs := newLastIDs()
	for _, o := range d.objectList {
		flags := o.FlagValues()
		if !d.visible(o, flags) {
			continue
		}
		if flags.Transparent {
			d.transparentObjs = append(d.transparentObjs, o)
		} else {
			list, err := d.appendObject(d.opaqueList, o, &drawIDs, false)
			if err != nil {
				return err
			}
			d.opaqueList = list
			d.opaqueObjs++
		}
		// Transparency never exempts an object from picking.
		if flags.Pickable {
			list, err := d.appendObject(d.pickList, o, &pickIDs, true)
			if err != nil {
				return err
			}
			d.pickList = list
			d.pickObjs++
		}
	}

	transIDs := newLastIDs()
	for _, o := range d.transparentObjs {
		list, err := d.appendObject(d.transparentList, o, &transIDs, false)
		if err != nil {
			return err
		}
		d.transparentList = list
	}
	return nil
}

// appendObject appends the chunks of o that run in the list's pass, skipping a chunk whose id
// repeats the last id seen in its slot.
func (d *display) appendObject(list []*chunk.Chunk, o *object.Object, last *lastIDs, picking bool) ([]*chunk.Chunk, error) {
	wants := func(c *chunk.Chunk) bool {
		if picking {
			return c.Picks()
		}
		return c.Draws()
	}

	if o.Renderer.Valid() {
		rc, err := d.chunks.Resolve(o.Renderer)
		if err != nil {
			return list, err
		}
		if wants(rc) && rc.ID != last.renderer {
			list = append(list, rc)
			last.renderer = rc.ID
		}
	}

	for slot, h := range o.Chunks {
		if !h.Valid() {
			continue
		}
		c, err := d.chunks.Resolve(h)
		if err != nil {
			return list, err
		}
		if !wants(c) {
			continue
		}
		if c.Unique() || last.slots[slot] != c.ID {
			list = append(list, c)
			last.slots[slot] = c.ID
		}
	}
	return list, nil
}
