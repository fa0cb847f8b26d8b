package analysis

import "math"

// DisplayBuckets is the number of bars in a display histogram.
const DisplayBuckets = 64

// Bucket is one bar of a display histogram.
type Bucket struct {
	Start  float64 `json:"start"` // first value covered
	End    float64 `json:"end"`   // last value covered
	Count  int     `json:"count"`
	Height float64 `json:"height"` // percent of the tallest bucket
}

// ColorBuckets folds a 256-bin color histogram into 64 buckets of width 4.
func ColorBuckets(h *[Bins]int) []Bucket {
	return bucketize(h, 256)
}

// AlphaBuckets folds alpha values 0-254 into 64 buckets, leaving out fully
// opaque pixels. The domain is 255 wide, so buckets are 255/64 values wide
// and do not align to integers. This matches the long-standing display and
// is kept as is.
func AlphaBuckets(h *[Bins]int) []Bucket {
	return bucketize(h, 255)
}

func bucketize(h *[Bins]int, domain int) []Bucket {
	size := float64(domain) / DisplayBuckets
	var counts [DisplayBuckets]int
	for v := 0; v < domain; v++ {
		idx := int(math.Floor(float64(v) / size))
		counts[idx] += h[v]
	}

	maxCount := 0
	for _, c := range counts {
		if c > maxCount {
			maxCount = c
		}
	}

	out := make([]Bucket, DisplayBuckets)
	for i, c := range counts {
		b := Bucket{
			Start: float64(i) * size,
			End:   float64(i+1)*size - 1,
			Count: c,
		}
		if maxCount > 0 {
			b.Height = float64(c) / float64(maxCount) * 100
		}
		out[i] = b
	}
	return out
}
