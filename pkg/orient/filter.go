// Package orient decides which side of the robot faces down.
package orient

// Vector is a raw accelerometer sample.
type Vector [3]int16

// Sign is the orientation: +1 upright, -1 inverted, 0 undecided.
type Sign int

// Orientation signs.
const (
	Inverted  Sign = -1
	Undecided Sign = 0
	Upright   Sign = 1
)

const (
	// DefaultDeadzone is the downness magnitude below which the sign is
	// undecided.
	DefaultDeadzone = 2
	// DefaultTimeout is the number of consecutive agreeing samples needed
	// to change the filtered sign.
	DefaultTimeout = 50
)

// DefaultDown is the reference down direction in sensor axes.
var DefaultDown = Vector{0, 12, -9}

// Downness projects v onto down. Components are scaled by 1/1000 before
// the dot product and the result by 1/16, all truncating.
func Downness(v, down Vector) int {
	sum := 0
	for i := range v {
		sum += int(v[i]) / 1000 * int(down[i])
	}
	return sum / 16
}

// Filter debounces the orientation sign.
type Filter struct {
	Down     Vector
	Deadzone int
	Timeout  int

	downness int
	raw      Sign
	filtered Sign
	count    int
}

// NewFilter creates a Filter with default parameters, starting upright.
func NewFilter() *Filter {
	return &Filter{
		Down:     DefaultDown,
		Deadzone: DefaultDeadzone,
		Timeout:  DefaultTimeout,
		filtered: Upright,
	}
}

// Update feeds a sample and returns the filtered sign.
func (f *Filter) Update(v Vector) Sign {
	f.downness = Downness(v, f.Down)
	raw := Undecided
	switch {
	case f.downness <= -f.Deadzone:
		raw = Inverted
	case f.downness >= f.Deadzone:
		raw = Upright
	}
	if raw != f.raw {
		f.raw = raw
		f.count = 0
	}
	if f.count < f.Timeout {
		f.count++
	}
	if f.count >= f.Timeout {
		f.filtered = raw
	}
	return f.filtered
}

// Filtered returns the debounced sign.
func (f *Filter) Filtered() Sign {
	return f.filtered
}

// Raw returns the sign of the last sample.
func (f *Filter) Raw() Sign {
	return f.raw
}

// Downness returns the downness of the last sample.
func (f *Filter) Downness() int {
	return f.downness
}

// Stable returns how many consecutive samples agreed with Raw, up to Timeout.
func (f *Filter) Stable() int {
	return f.count
}
