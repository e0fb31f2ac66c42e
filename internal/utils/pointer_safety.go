// Package utils holds small helpers for the optional fields of partial
// update payloads.
package utils

// Value dereferences v, or returns the zero value when v is nil
func Value[T any](v *T) T {
	if v == nil {
		return *new(T)
	}
	return *v
}

func Ptr[T any](v T) *T {
	return &v
}

// PtrIf returns a pointer to v only when set is true. It turns "was this
// flag given" into an omitted field.
func PtrIf[T any](set bool, v T) *T {
	if !set {
		return nil
	}
	return &v
}

// Assign copies *src into *dst when src is set
func Assign[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
