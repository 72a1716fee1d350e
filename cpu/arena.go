// Copyright 2025, Adeline Murphy

package cpu

import (
	"slices"

	"github.com/sirupsen/logrus"
)

// Arena owns every memory segment and the free-list of unmapped handles.
// Segment 0 holds the executing program.
type Arena struct {
	Verbose bool // If set, logs segment mapping.

	segment  [][]uint32 // Segments by handle.
	unmapped []bool     // Set for handles on the free-list.
	free     Stack      // Unmapped handles, most recently freed last.
}

// Reset the arena to a single segment 0 holding program.
func (arena *Arena) Reset(program []uint32) {
	clear(arena.segment)
	arena.segment = append(arena.segment[:0], slices.Clone(program))
	arena.unmapped = append(arena.unmapped[:0], false)
	arena.free.Reset()
}

// Count returns the number of handles, mapped or not.
func (arena *Arena) Count() int {
	return len(arena.segment)
}

// Mapped returns the number of mapped segments.
func (arena *Arena) Mapped() int {
	return len(arena.segment) - arena.free.Len()
}

// valid returns true if the handle names a mapped segment.
func (arena *Arena) valid(handle uint32) bool {
	return uint64(handle) < uint64(len(arena.segment)) && !arena.unmapped[handle]
}

// Len returns the length of a mapped segment.
func (arena *Arena) Len(handle uint32) (length int, ok bool) {
	if !arena.valid(handle) {
		return
	}

	return len(arena.segment[handle]), true
}

// Segment returns a copy of a mapped segment.
func (arena *Arena) Segment(handle uint32) (words []uint32, ok bool) {
	if !arena.valid(handle) {
		return
	}

	return slices.Clone(arena.segment[handle]), true
}

// Allocate maps a new zeroed segment of count words, reusing the most
// recently freed handle if there is one. Handle 0 is never returned; an
// arena that was never reset gets an empty segment 0 first.
func (arena *Arena) Allocate(count uint32) (handle uint32) {
	if len(arena.segment) == 0 {
		arena.Reset(nil)
	}

	words := make([]uint32, count)

	handle, ok := arena.free.Pop()
	if ok {
		arena.segment[handle] = words
		arena.unmapped[handle] = false
	} else {
		handle = uint32(len(arena.segment))
		arena.segment = append(arena.segment, words)
		arena.unmapped = append(arena.unmapped, false)
	}

	if arena.Verbose {
		logrus.WithFields(logrus.Fields{"handle": handle, "words": count}).Debug("arena: map")
	}

	return
}

// Deallocate unmaps a segment and puts its handle on the free-list.
// Segment 0 can not be unmapped.
func (arena *Arena) Deallocate(handle uint32) (err error) {
	if handle == 0 || !arena.valid(handle) {
		err = &ErrSegment{Fault: FAULT_INVALID_SEGMENT_OP, Handle: handle}
		return
	}

	arena.segment[handle] = nil
	arena.unmapped[handle] = true
	arena.free.Push(handle)

	if arena.Verbose {
		logrus.WithFields(logrus.Fields{"handle": handle}).Debug("arena: unmap")
	}

	return
}

// Load reads the word at offset in a mapped segment.
func (arena *Arena) Load(handle uint32, offset uint32) (value uint32, err error) {
	if !arena.valid(handle) || uint64(offset) >= uint64(len(arena.segment[handle])) {
		err = &ErrSegment{Fault: FAULT_OUT_OF_BOUNDS_ACCESS, Handle: handle, Offset: offset}
		return
	}

	value = arena.segment[handle][offset]
	return
}

// Store writes the word at offset in a mapped segment.
func (arena *Arena) Store(handle uint32, offset uint32, value uint32) (err error) {
	if !arena.valid(handle) || uint64(offset) >= uint64(len(arena.segment[handle])) {
		err = &ErrSegment{Fault: FAULT_OUT_OF_BOUNDS_ACCESS, Handle: handle, Offset: offset}
		return
	}

	arena.segment[handle][offset] = value
	return
}

// Duplicate replaces segment 0 with a copy of the segment at handle.
// Duplicating segment 0 onto itself does nothing.
func (arena *Arena) Duplicate(handle uint32) (err error) {
	if !arena.valid(handle) {
		err = &ErrSegment{Fault: FAULT_OUT_OF_BOUNDS_ACCESS, Handle: handle}
		return
	}

	if handle == 0 {
		return
	}

	arena.segment[0] = slices.Clone(arena.segment[handle])

	if arena.Verbose {
		logrus.WithFields(logrus.Fields{"handle": handle, "words": len(arena.segment[0])}).Debug("arena: load program")
	}

	return
}

// Fetch reads the instruction at pc in segment 0.
func (arena *Arena) Fetch(pc uint32) (code Code, err error) {
	var program []uint32
	if len(arena.segment) > 0 {
		program = arena.segment[0]
	}
	if uint64(pc) >= uint64(len(program)) {
		err = &ErrSegment{Fault: FAULT_OUT_OF_BOUNDS_FETCH, Handle: 0, Offset: pc}
		return
	}

	code = Code(program[pc])
	return
}
