package notation

// AlignRestsToNotes moves rests on the default middle line to the lines of
// the neighboring notes so they sit inside beam groups. With alignAll every
// default rest is moved, otherwise only beamed ones. Rests inside tuplets
// are left alone unless alignTuplets is set.
func AlignRestsToNotes(tickables []Tickable, alignAll, alignTuplets bool) {
	for i, t := range tickables {
		rest, ok := t.(*StaveNote)
		if !ok || !rest.IsRest() {
			continue
		}
		if rest.Tuplet() != nil && !alignTuplets {
			continue
		}
		if rest.RestPositioned() {
			continue
		}
		if !alignAll && rest.Beam() == nil {
			continue
		}

		if i == 0 {
			rest.SetKeyLine(0, lookAhead(tickables, rest.KeyLine(0), i, false))
			continue
		}
		prev, ok := tickables[i-1].(*StaveNote)
		if !ok {
			continue
		}
		if prev.IsRest() {
			rest.SetKeyLine(0, prev.KeyLine(0))
		} else {
			rest.SetKeyLine(0, lookAhead(tickables, prev.LineForRest(), i, true))
		}
	}
}

// lookAhead returns the rest line of the next real note after index i, or
// with compare the midpoint between restLine and that line.
func lookAhead(tickables []Tickable, restLine float64, i int, compare bool) float64 {
	next := restLine
	for j := i + 1; j < len(tickables); j++ {
		n, ok := tickables[j].(*StaveNote)
		if ok && !n.IsRest() && !n.ShouldIgnoreTicks() {
			next = n.LineForRest()
			break
		}
	}
	if compare && restLine != next {
		top, bottom := max(restLine, next), min(restLine, next)
		next = midLine(top, bottom)
	}
	return next
}
