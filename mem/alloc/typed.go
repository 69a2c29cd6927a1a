package alloc

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/joshuapare/memkit/internal/buf"
)

// Creator is the create/destroy convention for a single element type.
// Typed adapts any Allocator to it; pool.Allocator implements it on top of
// pool recycling.
type Creator[T any] interface {
	Create() (*T, error)
	Destroy(p *T) error
}

// hasPointers reports whether values of t hold anything the garbage
// collector has to trace.
func hasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return false
	case reflect.Array:
		return t.Len() > 0 && hasPointers(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if hasPointers(t.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// PointerFree reports whether T can live in raw allocator memory.
func PointerFree[T any]() bool {
	return !hasPointers(reflect.TypeFor[T]())
}

// Create places a zeroed T in memory obtained from a. T must be pointer
// free (see PointerFree): raw regions are not scanned by the garbage
// collector, so pointers stored there would not keep their targets alive.
func Create[T any](a Allocator) (*T, error) {
	if !PointerFree[T]() {
		return nil, fmt.Errorf("%w: %v", ErrPointerType, reflect.TypeFor[T]())
	}
	var zero T
	size, align := int(unsafe.Sizeof(zero)), int(unsafe.Alignof(zero))
	if size == 0 {
		return new(T), nil
	}
	region, err := a.Alloc(size, align)
	if err != nil {
		return nil, err
	}
	clear(region)
	return (*T)(unsafe.Pointer(unsafe.SliceData(region))), nil
}

// Destroy returns the memory of a value obtained from Create to a.
func Destroy[T any](a Allocator, p *T) error {
	size := int(unsafe.Sizeof(*p))
	if size == 0 || p == nil {
		return nil
	}
	return a.Free(unsafe.Slice((*byte)(unsafe.Pointer(p)), size))
}

// Reserve obtains memory for one T from a and returns the value together
// with the region backing it; the caller returns the region with a.Free.
//
// A pointer-free T is placed in the region. A T that holds pointers is
// allocated by Go and the region is held as its reservation, so the
// allocator chain still sees, accounts and can refuse the request.
func Reserve[T any](a Allocator) (*T, []byte, error) {
	var zero T
	size, align := int(unsafe.Sizeof(zero)), int(unsafe.Alignof(zero))
	region, err := a.Alloc(size, align)
	if err != nil {
		return nil, nil, err
	}
	if size == 0 || !PointerFree[T]() {
		return new(T), region, nil
	}
	clear(region)
	return (*T)(unsafe.Pointer(unsafe.SliceData(region))), region, nil
}

// ReserveSlice is Reserve for n contiguous values.
func ReserveSlice[T any](a Allocator, n int) ([]T, []byte, error) {
	var zero T
	size, align := int(unsafe.Sizeof(zero)), int(unsafe.Alignof(zero))
	total, err := buf.CheckArray(n, size)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrBadSize, err)
	}
	region, err := a.Alloc(total, align)
	if err != nil {
		return nil, nil, err
	}
	if total == 0 || !PointerFree[T]() {
		return make([]T, n), region, nil
	}
	clear(region)
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(region))), n), region, nil
}

// MakeSlice places n zeroed values of a pointer-free T in memory from a.
func MakeSlice[T any](a Allocator, n int) ([]T, error) {
	if !PointerFree[T]() {
		return nil, fmt.Errorf("%w: %v", ErrPointerType, reflect.TypeFor[T]())
	}
	s, _, err := ReserveSlice[T](a, n)
	return s, err
}

// FreeSlice returns a slice obtained from MakeSlice to a.
func FreeSlice[T any](a Allocator, s []T) error {
	var zero T
	total := cap(s) * int(unsafe.Sizeof(zero))
	if total == 0 {
		return nil
	}
	return a.Free(unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(s))), total))
}

// Typed adapts an Allocator to the Creator convention for pointer-free T.
type Typed[T any] struct {
	a Allocator
}

// NewTyped returns a Creator backed by a.
func NewTyped[T any](a Allocator) *Typed[T] {
	return &Typed[T]{a: a}
}

// Create implements Creator.
func (t *Typed[T]) Create() (*T, error) { return Create[T](t.a) }

// Destroy implements Creator.
func (t *Typed[T]) Destroy(p *T) error { return Destroy(t.a, p) }

var _ Creator[int64] = (*Typed[int64])(nil)
