package bms

import "math"

// Shorten returns the scaling factor of the measure, 1.0 outside the recorded range.
func (c *Chart) Shorten(measure int) float64 {
	if measure < 0 || measure >= len(c.Shortens) {
		return 1
	}
	return c.Shortens[measure]
}

// AdjustTime returns the position reached by travelling delta scaled measures
// forward from base. With the first four measures scaled by 1/4,
// AdjustTime(0, 2) is 5.
func (c *Chart) AdjustTime(base, delta float64) float64 {
	baseMeasure := int(math.Floor(base))
	baseShorten := c.Shorten(baseMeasure)
	baseFrac := base - float64(baseMeasure)
	toNext := (1 - baseFrac) * baseShorten
	if delta < toNext {
		return base + delta/baseShorten
	}
	delta -= toNext
	i := baseMeasure + 1
	cur := c.Shorten(i)
	for delta >= cur {
		delta -= cur
		i++
		cur = c.Shorten(i)
	}
	return float64(i) + delta/cur
}

// AdjustPosition returns the scaled distance between base and t. It is the
// inverse of AdjustTime.
func (c *Chart) AdjustPosition(base, t float64) float64 {
	baseMeasure := int(math.Floor(base))
	timeMeasure := int(math.Floor(t))
	pos := (t-float64(timeMeasure))*c.Shorten(timeMeasure) - (base-float64(baseMeasure))*c.Shorten(baseMeasure)
	for i := baseMeasure; i < timeMeasure; i++ {
		pos += c.Shorten(i)
	}
	return pos
}
