package sim

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// LIS2HH12 register addresses used by the model.
const (
	accelWhoAmI  = 0x0f
	accelCtrl1   = 0x20
	accelStatus  = 0x27
	accelOutXL   = 0x28
	accelIdent   = 0x41
	accelODRMask = 0x70
)

// AccelCountsPerG is the raw reading for 1g at the ±2g full scale.
const AccelCountsPerG = 16384

// Accelerometer models a LIS2HH12 mounted on the robot chassis.
// Mount is the unit gravity direction in sensor axes while the robot
// stands upright; Roll and Pitch rotate the chassis around its X and Y
// axes.
type Accelerometer struct {
	*RegisterDevice

	lock        sync.Mutex
	mount       mgl64.Vec3
	roll, pitch float64
}

// NewAccelerometer creates an accelerometer at addr.
func NewAccelerometer(addr uint8, mount mgl64.Vec3) *Accelerometer {
	a := &Accelerometer{
		RegisterDevice: NewRegisterDevice(addr),
		mount:          mount.Normalize(),
	}
	a.Set(accelWhoAmI, accelIdent)
	a.OnRead = a.sample
	return a
}

// SetAttitude sets the chassis attitude in degrees.
func (a *Accelerometer) SetAttitude(roll, pitch float64) {
	a.lock.Lock()
	a.roll, a.pitch = roll, pitch
	a.lock.Unlock()
}

// Attitude returns roll and pitch in degrees.
func (a *Accelerometer) Attitude() (roll, pitch float64) {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.roll, a.pitch
}

// Gravity returns the gravity vector in sensor axes, in g.
func (a *Accelerometer) Gravity() mgl64.Vec3 {
	a.lock.Lock()
	defer a.lock.Unlock()
	q := mgl64.AnglesToQuat(0, mgl64.DegToRad(a.pitch), mgl64.DegToRad(a.roll), mgl64.ZYX)
	return q.Rotate(a.mount)
}

// Counts returns the raw output registers for the current attitude.
func (a *Accelerometer) Counts() [3]int16 {
	var out [3]int16
	g := a.Gravity()
	for i := range out {
		v := math.Round(g[i] * AccelCountsPerG)
		if v > math.MaxInt16 {
			v = math.MaxInt16
		} else if v < math.MinInt16 {
			v = math.MinInt16
		}
		out[i] = int16(v)
	}
	return out
}

func (a *Accelerometer) sample(reg uint8) {
	if reg != accelOutXL && reg != accelStatus {
		return
	}
	var out [6]byte
	if a.Get(accelCtrl1)&accelODRMask != 0 {
		for i, v := range a.Counts() {
			out[i*2] = byte(uint16(v))
			out[i*2+1] = byte(uint16(v) >> 8)
		}
		a.Set(accelStatus, 0x0f)
	}
	a.Set(accelOutXL, out[:]...)
}
