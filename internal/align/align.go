// Package align turns instruments to face a moving target while they orbit a
// fixed pivot.
package align

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/surgisim/fusion/internal/pose"
)

// Threshold is the angle in radians below which two directions count as aligned.
const Threshold = 0.001

// parallelLimit is the |dot| above which the fallback axis is itself too
// close to the forward direction to define a rotation.
const parallelLimit = 0.999

var (
	fallbackAxis  = mgl64.Vec3{0, 0, 1}
	secondaryAxis = mgl64.Vec3{1, 0, 0}
)

// Result is the outcome of one alignment step.
type Result struct {
	Orientation mgl64.Vec3 // Euler degrees
	Position    mgl64.Vec3
	Forward     mgl64.Vec3 // direction the instrument should face
	Angle       float64    // radians turned this step
	Rotated     bool
	Fallback    bool // true when the rotation axis was substituted
}

// TargetForward returns normalize(pivot - target). It reports false when the
// two points coincide and the direction is undefined.
func TargetForward(pivot, target mgl64.Vec3) (mgl64.Vec3, bool) {
	d := pivot.Sub(target)
	if d.Len() < 1e-12 {
		return mgl64.Vec3{}, false
	}
	return d.Normalize(), true
}

// Align computes the orientation that points the local forward axis along
// pivot - target and the position that keeps the current distance to pivot.
func Align(current, pivot, target, position mgl64.Vec3) Result {
	res := Result{Orientation: current, Position: position}

	want, ok := TargetForward(pivot, target)
	if !ok {
		return res
	}
	res.Forward = want

	have := pose.Rotate(pose.LocalForward, current)
	res.Angle = math.Acos(mgl64.Clamp(have.Dot(want), -1, 1))

	if res.Angle >= Threshold {
		axis := have.Cross(want)
		if axis.Len() < Threshold {
			axis = orthogonalFallback(have)
			res.Fallback = true
		} else {
			axis = axis.Normalize()
		}

		inc := mgl64.QuatRotate(res.Angle, axis)
		res.Orientation = pose.QuatToEuler(inc.Mul(pose.EulerToQuat(current)))
		res.Rotated = true
	}

	radius := pivot.Sub(position).Len()
	res.Position = pivot.Sub(want.Mul(radius))

	return res
}

// AlignPose applies Align to p in place.
func AlignPose(p *pose.Pose, pivot, target mgl64.Vec3) Result {
	res := Align(p.Orientation, pivot, target, p.Position)
	p.Orientation = res.Orientation
	p.Position = res.Position
	return res
}

// orthogonalFallback returns world Z unless forward already lies along it,
// in which case an axis perpendicular to forward is built from world X.
func orthogonalFallback(forward mgl64.Vec3) mgl64.Vec3 {
	if math.Abs(forward.Dot(fallbackAxis)) <= parallelLimit {
		return fallbackAxis
	}
	return forward.Cross(secondaryAxis).Normalize()
}
