package pose

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// LocalForward is the model-space axis an instrument points along.
var LocalForward = mgl64.Vec3{0, 0, 1}

var (
	worldX = mgl64.Vec3{1, 0, 0}
	worldY = mgl64.Vec3{0, 1, 0}
	worldZ = mgl64.Vec3{0, 0, 1}
)

// Pose is the world placement of an entity.
// Orientation holds Euler angles in degrees, applied about the world X axis,
// then world Y, then world Z.
type Pose struct {
	Position    mgl64.Vec3
	Orientation mgl64.Vec3
	Scale       mgl64.Vec3
}

// Identity returns a pose at the origin with no rotation and unit scale.
func Identity() Pose {
	return Pose{Scale: UniformScale(1)}
}

// UniformScale returns a scale vector with the same factor on every axis.
func UniformScale(s float64) mgl64.Vec3 {
	return mgl64.Vec3{s, s, s}
}

// EulerToQuat converts Euler degrees into the equivalent rotation (qz * qy * qx).
func EulerToQuat(deg mgl64.Vec3) mgl64.Quat {
	qx := mgl64.QuatRotate(mgl64.DegToRad(deg.X()), worldX)
	qy := mgl64.QuatRotate(mgl64.DegToRad(deg.Y()), worldY)
	qz := mgl64.QuatRotate(mgl64.DegToRad(deg.Z()), worldZ)
	return qz.Mul(qy).Mul(qx)
}

// QuatToEuler converts a rotation back into Euler degrees using the same
// convention as EulerToQuat.
func QuatToEuler(q mgl64.Quat) mgl64.Vec3 {
	q = q.Normalize()
	w, x, y, z := q.W, q.V.X(), q.V.Y(), q.V.Z()

	sinYaw := mgl64.Clamp(-2*(x*z-w*y), -1, 1)
	yaw := math.Asin(sinYaw)

	// Gimbal lock: only pitch -/+ roll is observable, fold it all into pitch.
	if math.Abs(sinYaw) >= 1-gimbalEpsilon {
		return mgl64.Vec3{
			wrapDegrees(mgl64.RadToDeg(2 * math.Atan2(x, w))),
			mgl64.RadToDeg(math.Copysign(math.Pi/2, sinYaw)),
			0,
		}
	}

	pitch := math.Atan2(2*(y*z+w*x), w*w-x*x-y*y+z*z)
	roll := math.Atan2(2*(x*y+w*z), w*w+x*x-y*y-z*z)

	return mgl64.Vec3{
		mgl64.RadToDeg(pitch),
		mgl64.RadToDeg(yaw),
		mgl64.RadToDeg(roll),
	}
}

const gimbalEpsilon = 1e-12

// wrapDegrees maps an angle into (-180, 180].
func wrapDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg > 180 {
		deg -= 360
	} else if deg <= -180 {
		deg += 360
	}
	return deg
}

// Rotate applies Euler degrees to v.
func Rotate(v, deg mgl64.Vec3) mgl64.Vec3 {
	return EulerToQuat(deg).Rotate(v)
}

// Quat returns the orientation as a quaternion.
func (p Pose) Quat() mgl64.Quat {
	return EulerToQuat(p.Orientation)
}

// Forward returns LocalForward transformed by the orientation.
func (p Pose) Forward() mgl64.Vec3 {
	return p.Quat().Rotate(LocalForward)
}

// SetFromQuat replaces the whole orientation with one derived from q.
func (p *Pose) SetFromQuat(q mgl64.Quat) {
	p.Orientation = QuatToEuler(q)
}

// RotateWorld turns the pose by deg degrees about a world axis. The increment
// is composed as a quaternion so the stored Euler triple is always re-derived.
func (p *Pose) RotateWorld(axis mgl64.Vec3, deg float64) {
	if axis.Len() == 0 || deg == 0 {
		return
	}
	inc := mgl64.QuatRotate(mgl64.DegToRad(deg), axis.Normalize())
	p.SetFromQuat(inc.Mul(p.Quat()))
}

// Translate moves the pose by delta.
func (p *Pose) Translate(delta mgl64.Vec3) {
	p.Position = p.Position.Add(delta)
}

// Matrix returns the model matrix: translation, rotation, then scale.
func (p Pose) Matrix() mgl64.Mat4 {
	t := mgl64.Translate3D(p.Position.X(), p.Position.Y(), p.Position.Z())
	s := mgl64.Scale3D(p.Scale.X(), p.Scale.Y(), p.Scale.Z())
	return t.Mul4(p.Quat().Mat4()).Mul4(s)
}
