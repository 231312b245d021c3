package fusion

// Kahan-compensated reductions. Weight products across a large pool can
// differ by orders of magnitude; naive accumulation loses low-order bits
// that the normalization invariants then expose.

// compSum accumulates with Kahan compensation.
type compSum struct {
	sum float64
	c   float64
}

func (s *compSum) add(v float64) {
	y := v - s.c
	t := s.sum + y
	s.c = (t - s.sum) - y
	s.sum = t
}

func (s *compSum) value() float64 {
	return s.sum
}

// safeSum sums values with compensation, treating nil entries as absent
// rather than zero.
func safeSum(values []*float64) (float64, int) {
	var s compSum
	n := 0
	for _, v := range values {
		if v == nil {
			continue
		}
		s.add(*v)
		n++
	}
	return s.value(), n
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
