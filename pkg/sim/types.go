// Package sim simulates a flipbot in a flat world: the controller board
// runs the real firmware while the chassis moves by its wheel powers.
package sim

// Pos2D defines the position in 2D, in millimeters.
type Pos2D struct {
	X, Y float64
}

// OffsetBy performs Add in-place.
func (p *Pos2D) OffsetBy(p1 Pos2D) *Pos2D {
	p.X += p1.X
	p.Y += p1.Y
	return p
}

// Pose2D defines the pose in 2D.
type Pose2D struct {
	Pos2D
	Orientation Angle
}
