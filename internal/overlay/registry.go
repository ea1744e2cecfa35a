package overlay

import (
	"errors"
	"sort"
)

// Ref is the stable external reference to an overlay. Refs increase
// monotonically and are never reused.
type Ref int

// NoRef is returned alongside errors when no reference applies.
const NoRef Ref = -1

// ErrHandleNotFound is returned by Replace when the old handle is not registered.
var ErrHandleNotFound = errors.New("overlay handle not found")

// Registry binds refs to the current handle backing each overlay. Handles
// are compared by identity, so H is usually a pointer type.
//
// Registry is not safe for concurrent use; the editor serialises access.
type Registry[H comparable] struct {
	last    Ref
	handles map[Ref]H
}

// NewRegistry creates an empty registry. The first ref handed out is 1.
func NewRegistry[H comparable]() *Registry[H] {
	return &Registry[H]{handles: make(map[Ref]H)}
}

// Peek returns the ref the next Add will hand out.
func (r *Registry[H]) Peek() Ref {
	return r.last + 1
}

// Add binds h to the next ref.
func (r *Registry[H]) Add(h H) Ref {
	r.last++
	r.handles[r.last] = h
	return r.last
}

// Get returns the handle bound to ref.
func (r *Registry[H]) Get(ref Ref) (H, bool) {
	h, ok := r.handles[ref]
	return h, ok
}

// refOf finds the ref currently bound to h.
func (r *Registry[H]) refOf(h H) (Ref, bool) {
	for ref, cur := range r.handles {
		if cur == h {
			return ref, true
		}
	}
	return NoRef, false
}

// Replace rebinds the ref holding old to next. It returns NoRef and
// ErrHandleNotFound when old is not registered.
func (r *Registry[H]) Replace(old, next H) (Ref, error) {
	ref, ok := r.refOf(old)
	if !ok {
		return NoRef, ErrHandleNotFound
	}
	r.handles[ref] = next
	return ref, nil
}

// Remove unbinds ref and returns the handle it held.
func (r *Registry[H]) Remove(ref Ref) (H, bool) {
	h, ok := r.handles[ref]
	if ok {
		delete(r.handles, ref)
	}
	return h, ok
}

// RemoveHandle unbinds whichever ref holds h.
func (r *Registry[H]) RemoveHandle(h H) (H, bool) {
	ref, ok := r.refOf(h)
	if !ok {
		var zero H
		return zero, false
	}
	return r.Remove(ref)
}

// Refs returns the live refs in ascending order.
func (r *Registry[H]) Refs() []Ref {
	refs := make([]Ref, 0, len(r.handles))
	for ref := range r.handles {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i] < refs[j] })
	return refs
}

// List returns a snapshot of the handles ordered by ref.
func (r *Registry[H]) List() []H {
	refs := r.Refs()
	out := make([]H, len(refs))
	for i, ref := range refs {
		out[i] = r.handles[ref]
	}
	return out
}

// Len is the number of live overlays.
func (r *Registry[H]) Len() int {
	return len(r.handles)
}
