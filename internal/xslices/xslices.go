package xslices

func Filter[T any, S ~[]T](s S, f func(T) bool) (r S) {
	r = make(S, 0, len(s))
	for _, v := range s {
		if f(v) {
			r = append(r, v)
		}
	}
	return r
}

// MaxFunc returns the element of s for which less reports every other
// element as smaller. It returns false if s is empty.
func MaxFunc[T any, S ~[]T](s S, less func(T, T) bool) (m T, ok bool) {
	for i, v := range s {
		if i == 0 || less(m, v) {
			m, ok = v, true
		}
	}
	return m, ok
}
