package firmware

import (
	"github.com/robotalks/flipbot/pkg/hal"
	"github.com/robotalks/flipbot/pkg/hal/sim"
)

// SimHardware maps a simulated board onto the firmware capabilities.
// Timer1 doubles as the shared brushed timer.
func SimHardware(b *sim.Board) Hardware {
	return Hardware{
		GPIO:           b.GPIO,
		TWI:            b.TWI,
		TickTimer:      b.Timer0,
		SamplerTimer:   b.Timer2,
		BrushedTimers:  [2]hal.Timer{b.Timer1, b.Timer3},
		SharedTimer:    b.Timer1,
		BrushlessTimer: b.Timer4,
		Voltmeter:      b.Battery,
		Display:        b.Display,
	}
}
