package geom

// hilbertOrder is the side length (2^16) of the discrete grid used for
// Hilbert curve positions. 32 bits of curve index are enough to give stable
// spatial ordering for file layout purposes.
const hilbertOrder = 1 << 16

// HilbertPosition maps a point to its index along a Hilbert space-filling
// curve over the given extent. Points sorted by this index are spatially
// clustered, which improves bbox pruning in the written files.
//
// Points outside the extent are clamped to its edge. A degenerate extent
// collapses to index 0.
func HilbertPosition(p Point, extent BoundingBox) uint64 {
	w := extent.Width()
	h := extent.Height()

	var x, y uint32
	if w > 0 {
		x = quantize((p.X - extent.MinX) / w)
	}
	if h > 0 {
		y = quantize((p.Y - extent.MinY) / h)
	}
	return hilbertD(x, y)
}

func quantize(f float64) uint32 {
	if f <= 0 {
		return 0
	}
	if f >= 1 {
		return hilbertOrder - 1
	}
	return uint32(f * (hilbertOrder - 1))
}

// hilbertD converts grid coordinates to the distance along the curve using
// the classic bit-interleaving walk from higher to lower orders.
func hilbertD(x, y uint32) uint64 {
	var d uint64
	for s := uint32(hilbertOrder / 2); s > 0; s /= 2 {
		var rx, ry uint32
		if x&s > 0 {
			rx = 1
		}
		if y&s > 0 {
			ry = 1
		}
		d += uint64(s) * uint64(s) * uint64((3*rx)^ry)

		// Rotate the quadrant so the curve stays continuous.
		if ry == 0 {
			if rx == 1 {
				x = s - 1 - x
				y = s - 1 - y
			}
			x, y = y, x
		}
	}
	return d
}
