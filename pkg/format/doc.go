// Package format justifies voices horizontally.
//
// A [Formatter] aligns the tickables of several voices by their cumulative
// tick offset and spaces the resulting tick contexts so that distance is
// proportional to duration:
//
//  1. JoinVoices builds one modifier context per (stave, tick) so
//     accidentals, dots and annotations of simultaneous notes avoid each
//     other.
//  2. CreateTickContexts groups tickables by cumulative tick across all
//     voices, in ascending order.
//  3. PreFormat lays contexts out at their minimum widths, then, for a
//     positive target width, moves every context to its softmax-weighted
//     ideal distance from the nearest earlier context sharing a voice and
//     iterates until the right edge lands inside the end-padding envelope.
//  4. Evaluate scores the layout by how evenly notes of equal duration are
//     spaced; Tune nudges contexts within their free space to lower that
//     score.
//  5. PostFormat finalizes the contexts once positions are fixed.
//
// [Formatter.Format] runs the whole sequence:
//
//	f := format.New(format.WithEnv(env))
//	cost, err := f.Format(voices, 400, format.Options{Stave: stave})
//
// A Formatter holds the state of one formatting pass and is not safe for
// concurrent use. Independent passes use independent formatters, voices
// and environments.
package format
