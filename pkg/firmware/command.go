package firmware

import (
	"github.com/robotalks/flipbot/pkg/motor"
	"github.com/robotalks/flipbot/pkg/pulse"
)

// Command is what the motors are asked to do.
type Command struct {
	// Brushed powers in [-255, 255], before orientation is applied.
	Brushed [2]int
	// Brushless throttle.
	Brushless uint8
	// Shutdown suppresses the brushless output.
	Shutdown bool
}

// CommandSource produces motor commands.
type CommandSource interface {
	Command() Command
}

// FixedProfile always commands the same powers.
type FixedProfile struct {
	Brushed1  int   `yaml:"brushed1"`
	Brushed2  int   `yaml:"brushed2"`
	Brushless uint8 `yaml:"brushless"`
	Shutdown  bool  `yaml:"shutdown"`
}

// DefaultProfile drives both motors forward, mounted mirrored, and keeps
// the brushless motor off.
var DefaultProfile = FixedProfile{
	Brushed1: 200,
	Brushed2: -200,
	Shutdown: true,
}

// Command implements CommandSource.
func (p FixedProfile) Command() Command {
	return Command{
		Brushed:   [2]int{p.Brushed1, p.Brushed2},
		Brushless: p.Brushless,
		Shutdown:  p.Shutdown,
	}
}

// PulseDecoded derives commands from pulse-width inputs.
type PulseDecoded struct {
	Decoder  *pulse.Decoder
	Mapping  pulse.Throttle
	pairs    [2][2]int
	throttle int
}

// NewPulseDecoded adds the input channels to dec.
func NewPulseDecoded(dec *pulse.Decoder, pins Pins, mapping pulse.Throttle) *PulseDecoded {
	s := &PulseDecoded{Decoder: dec, Mapping: mapping}
	for n, in := range []motor.PinPair{pins.Input1, pins.Input2} {
		s.pairs[n][0] = dec.AddChannel(in.A, pulse.BrushedWindow)
		s.pairs[n][1] = dec.AddChannel(in.B, pulse.BrushedWindow)
	}
	s.throttle = dec.AddChannel(pins.Throttle, pulse.BrushlessWindow)
	return s
}

// Command implements CommandSource.
func (s *PulseDecoded) Command() Command {
	var cmd Command
	for n, pair := range s.pairs {
		cmd.Brushed[n] = s.Decoder.BrushedCommand(pair[0], pair[1])
	}
	cmd.Brushless, cmd.Shutdown = s.Mapping.Decode(s.Decoder.Count(s.throttle))
	return cmd
}
