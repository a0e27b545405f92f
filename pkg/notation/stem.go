package notation

// Stem is the vertical line attached to a note. YTop and YBottom bound the
// noteheads; the tip extends StemHeight plus Extension beyond the innermost
// head in the stem direction.
type Stem struct {
	X         float64
	YTop      float64
	YBottom   float64
	Direction int
	Extension float64
	Hidden    bool

	Stemlet       bool
	StemletHeight float64
}

// Extents returns the stem tip y and the y of the outermost notehead.
func (s *Stem) Extents() (tip, base float64) {
	up := s.Direction == StemUp
	inner, outer := s.YBottom, s.YTop
	if up {
		inner, outer = s.YTop, s.YBottom
	}
	height := StemHeight + s.Extension
	return inner - height*float64(s.Direction), outer
}

// Length is the drawn length from the outermost head to the tip.
func (s *Stem) Length() float64 {
	tip, base := s.Extents()
	if tip > base {
		return tip - base
	}
	return base - tip
}
