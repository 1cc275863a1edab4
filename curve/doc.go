// Package curve converts sampled keyframe tracks into piecewise motion
// segments and assembles them into motion documents.
//
// A track is walked pairwise. Each pair of keyframes becomes one of four
// segment kinds, tried in order:
//
//   - inverse stepped: the pair is 0.01 apart and the keyframe after next
//     repeats the next value; the segment spans to the keyframe after next
//   - stepped: the incoming slope is +Inf
//   - linear: both tangents at the joint are zero
//   - Bezier: the Hermite tangents converted to control points at one and
//     two thirds of the interval
//
// Point and segment counts in a [Result] always match the emitted segments,
// so a [Motion] header can be trusted by consumers that do not recount.
package curve
