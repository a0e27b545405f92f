// Package notation models the musical objects the layout engine positions.
//
// The central abstraction is [Tickable]: anything that occupies rhythmic
// time and needs horizontal space. Tickables are appended to a [Voice],
// which enforces a duration budget derived from a time signature. During a
// formatting pass every tickable is registered with a [TickContext] (all
// tickables across voices that start at the same instant) and a
// [ModifierContext] (collision resolution for notes and their accidentals,
// dots and annotations on one stave at one instant).
//
// Time is exact. Durations are [fraction.Fraction] values in ticks, where a
// whole note is [Resolution] ticks; tuplets scale a tickable's ticks by a
// rational multiplier so that, for example, three triplet eighths add up to
// exactly one quarter.
//
// Two geometric sub-algorithms live here because they reuse the same
// position bookkeeping: [Beam] fits a stem slope over a run of short notes,
// and [Tuplet] places a bracket and ratio digits above or below its notes.
//
// # Passes
//
// Derived values are only available after the pass that produces them:
//
//   - Width and Metrics require PreFormat (ErrCodeUnformatted otherwise)
//   - X requires a tick context (ErrCodeNoTickContext)
//   - Stem geometry requires a stave (ErrCodeNoStave)
//
// Back references (tickable to voice, tick context, modifier context) are
// plain pointers valid for one formatting pass. Nothing in this package is
// safe for concurrent use; independent passes need independent objects and
// independent [Env] values.
package notation
