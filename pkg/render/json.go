package render

import (
	"encoding/json"

	"github.com/matzehuels/engrave/pkg/errors"
)

// RenderJSON exports the layout as a pretty-printed JSON document. It does
// not modify l and is safe to call concurrently.
func RenderJSON(l *Layout) ([]byte, error) {
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "marshal layout")
	}
	return append(data, '\n'), nil
}

// ParseJSON reads a layout document written by [RenderJSON], so cached
// layouts can be rendered again without formatting.
func ParseJSON(data []byte) (*Layout, error) {
	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse layout")
	}
	if l.Width <= 0 || l.Height <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "layout has no size")
	}
	return &l, nil
}
