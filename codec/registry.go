package codec

import (
	"fmt"
	"reflect"

	"github.com/replikativ/konserve-lmdb/errs"
	"github.com/replikativ/konserve-lmdb/format"
	"github.com/replikativ/konserve-lmdb/internal/pool"
)

// EncodeFunc is the nested encode entry point handed to a registered
// handler so it can compose its own fields out of built-in (or other
// registered) values, rather than re-implementing the tag table itself.
type EncodeFunc func(buf *pool.Buffer, v any) error

// DecodeFunc is the nested decode entry point handed to a registered
// handler. It returns the decoded value and the number of bytes of its
// input consumed.
type DecodeFunc func(data []byte) (any, int, error)

// Handler adapts one user-registered Go type to the codec's tagged wire
// format (spec.md §4.C3). Tag must fall in the user-extension range
// (format.UserTagMin and above); Class identifies the concrete Go type the
// handler owns on the encode side.
type Handler struct {
	Tag   byte
	Class reflect.Type

	// EncodeBody writes v's body (everything after the tag byte) to buf,
	// using enc to recursively encode any nested values.
	EncodeBody func(buf *pool.Buffer, v any, enc EncodeFunc) error

	// DecodeBody reads a value's body from data, which is positioned just
	// after the tag byte. ctx is the opaque payload passed to New, and dec
	// recursively decodes any nested values. It returns the decoded value
	// and the number of bytes of data it consumed.
	DecodeBody func(data []byte, ctx any, dec DecodeFunc) (any, int, error)
}

// Registry is a per-store table of user-registered type handlers, indexed
// both by wire tag and by the concrete Go type each handler owns. It is
// built once, eagerly, at New and is read-only afterward, so it is safe
// for concurrent use by readers and writers alike.
type Registry struct {
	ctx      any
	byTag    map[byte]Handler
	byClass  map[reflect.Type]Handler
	maxDepth int
}

// New validates handlers and builds a Registry from them. Every tag must
// be in the user-extension range, and no tag or class may repeat. ctx is
// an opaque read-only payload made available to every handler's
// DecodeBody call, for handlers whose decoding depends on ambient state
// established when the store was opened.
func New(ctx any, handlers ...Handler) (*Registry, error) {
	r := &Registry{
		ctx:     ctx,
		byTag:   make(map[byte]Handler, len(handlers)),
		byClass: make(map[reflect.Type]Handler, len(handlers)),
	}

	for _, h := range handlers {
		if !format.Tag(h.Tag).User() {
			return nil, fmt.Errorf("%w: 0x%02x", errs.ErrReservedTag, h.Tag)
		}
		if _, dup := r.byTag[h.Tag]; dup {
			return nil, fmt.Errorf("%w: 0x%02x", errs.ErrDuplicateTag, h.Tag)
		}
		if _, dup := r.byClass[h.Class]; dup {
			return nil, fmt.Errorf("%w: %s", errs.ErrDuplicateClass, h.Class)
		}

		r.byTag[h.Tag] = h
		r.byClass[h.Class] = h
	}

	return r, nil
}

// byValue looks up the handler registered for v's concrete type. It is nil
// safe: a nil *Registry behaves as an empty one.
func (r *Registry) byValue(v any) (Handler, bool) {
	if r == nil {
		return Handler{}, false
	}

	h, ok := r.byClass[reflect.TypeOf(v)]

	return h, ok
}

// byTagByte looks up the handler registered for tag. It is nil safe.
func (r *Registry) byTagByte(tag byte) (Handler, bool) {
	if r == nil {
		return Handler{}, false
	}

	h, ok := r.byTag[tag]

	return h, ok
}

func (r *Registry) context() any {
	if r == nil {
		return nil
	}

	return r.ctx
}

// WithMaxDepth overrides MaxDepth for encode/decode calls made with this
// registry. It returns r for chaining immediately after New; a Registry
// is otherwise immutable once handed to a store.
func (r *Registry) WithMaxDepth(n int) *Registry {
	r.maxDepth = n

	return r
}

func depthLimit(reg *Registry) int {
	if reg != nil && reg.maxDepth > 0 {
		return reg.maxDepth
	}

	return MaxDepth
}
