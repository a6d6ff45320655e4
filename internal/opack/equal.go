package opack

import "bytes"

// valuesEqual reports structural equality between two decoded OPACK
// values, used by the pack/unpack round-trip invariant and by Map.Equal.
func valuesEqual(a, b interface{}) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case uint64:
		bv, ok := b.(uint64)
		return ok && av == bv
	case float32:
		bv, ok := b.(float32)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case []byte:
		bv, ok := b.([]byte)
		return ok && bytes.Equal(av, bv)
	case UUID:
		bv, ok := b.(UUID)
		return ok && av == bv
	case []interface{}:
		bv, ok := b.([]interface{})
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !valuesEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case *Map:
		bv, ok := b.(*Map)
		return ok && av.Equal(bv)
	default:
		return false
	}
}

// Equal reports whether two decoded OPACK values are structurally
// equal (the invariant the pack/unpack round trip must satisfy).
func Equal(a, b interface{}) bool {
	return valuesEqual(a, b)
}
