package notation

// Stave is the staff a voice is drawn on. Layout only needs its vertical
// line positions and the horizontal span available to notes.
type Stave struct {
	X, Y, Width float64

	Spacing    float64 // distance between adjacent lines
	NumLines   int
	SpaceAbove float64 // headroom above the top line, in lines
	SpaceBelow float64

	// StartWidth and EndWidth are taken by begin and end modifiers (clef,
	// key, time signature, bar lines).
	StartWidth float64
	EndWidth   float64

	// Padding separates the first note from the note start.
	Padding float64

	TopTextPosition    float64
	BottomTextPosition float64
}

// NewStave returns a five-line stave at (x, y) with the environment's
// spacing and padding.
func NewStave(x, y, width float64, env *Env) *Stave {
	env = envOrDefault(env)
	return &Stave{
		X:                  x,
		Y:                  y,
		Width:              width,
		Spacing:            env.LineSpacing,
		NumLines:           5,
		SpaceAbove:         4,
		SpaceBelow:         4,
		Padding:            env.StavePadding,
		TopTextPosition:    1.5,
		BottomTextPosition: 4,
	}
}

// YForLine returns the y of a staff line counted from the top line (0).
func (s *Stave) YForLine(line float64) float64 {
	return s.Y + (line+s.SpaceAbove)*s.Spacing
}

// YForNote returns the y of a note line counted from the bottom line (1)
// in half steps: 3 is the middle line, 5 the top line.
func (s *Stave) YForNote(line float64) float64 {
	return s.Y + (s.SpaceAbove+float64(s.NumLines))*s.Spacing - line*s.Spacing
}

// YForTopText returns the baseline of the nth text line above the staff.
func (s *Stave) YForTopText(line float64) float64 {
	return s.YForLine(-line - s.TopTextPosition)
}

// YForBottomText returns the baseline of the nth text line below the staff.
func (s *Stave) YForBottomText(line float64) float64 {
	return s.YForLine(s.BottomTextPosition + line)
}

// Height is the full vertical extent including headroom.
func (s *Stave) Height() float64 {
	return (float64(s.NumLines) - 1 + s.SpaceAbove + s.SpaceBelow) * s.Spacing
}

// NoteStartX is where the note area begins, after begin modifiers.
func (s *Stave) NoteStartX() float64 {
	return s.X + s.StartWidth
}

// NoteEndX is where the note area ends, before end modifiers.
func (s *Stave) NoteEndX() float64 {
	return s.X + s.Width - s.EndWidth
}

// DefaultPadding is the horizontal space a stave reserves around its notes:
// the left padding plus the maximum end padding.
func DefaultPadding(env *Env) float64 {
	env = envOrDefault(env)
	return env.StavePadding + env.EndPaddingMax
}
