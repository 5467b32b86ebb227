package core

// EnsureLen returns a slice with the requested length, reusing buf capacity if possible.
func EnsureLen[T Sample](buf []T, n int) []T {
	if n <= 0 {
		return buf[:0]
	}
	if cap(buf) >= n {
		return buf[:n]
	}
	return make([]T, n)
}

// Zero sets all values in buf to 0.
func Zero[T Sample](buf []T) {
	for i := range buf {
		buf[i] = 0
	}
}

// Convert copies src into dst, widening or narrowing each sample to the
// destination precision, and returns the number of converted elements.
func Convert[D, S Sample](dst []D, src []S) int {
	n := len(dst)
	if len(src) < n {
		n = len(src)
	}
	dst = dst[:n]
	src = src[:n]
	for i := range dst {
		dst[i] = D(src[i])
	}
	return n
}
