// Package sim adds shell commands driving a flipbot simulator.
package sim

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/flipbot/pkg/cli/sh"
	"github.com/robotalks/flipbot/pkg/telemetry"
)

// ParseTilt parses ROLL [PITCH] in degrees.
func ParseTilt(args []string) (*telemetry.Tilt, error) {
	if len(args) < 1 || len(args) > 2 {
		return nil, fmt.Errorf("ROLL required")
	}
	var msg telemetry.Tilt
	val, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return nil, fmt.Errorf("Invalid ROLL: %v", err)
	}
	msg.Roll = val
	if len(args) > 1 {
		if val, err = strconv.ParseFloat(args[1], 64); err != nil {
			return nil, fmt.Errorf("Invalid PITCH: %v", err)
		}
		msg.Pitch = val
	}
	return &msg, nil
}

// ParseInput parses KEY=VALUE pairs of motor1, motor2, throttle (us),
// button (0/1) and volts (decivolts).
func ParseInput(args []string) (*telemetry.Input, error) {
	var msg telemetry.Input
	for _, arg := range args {
		kv := strings.SplitN(arg, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("Invalid %q: KEY=VALUE expected", arg)
		}
		val, err := strconv.ParseInt(kv[1], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("Invalid %s: %v", kv[0], err)
		}
		switch kv[0] {
		case "motor1", "m1":
			msg.Motor1 = int32(val)
		case "motor2", "m2":
			msg.Motor2 = int32(val)
		case "throttle", "t":
			if val < 0 {
				return nil, fmt.Errorf("Invalid throttle: %d", val)
			}
			msg.ThrottleMicros = uint32(val)
		case "button", "b":
			msg.Button = val != 0
		case "volts", "v":
			if val < 0 {
				return nil, fmt.Errorf("Invalid volts: %d", val)
			}
			msg.Decivolts = uint32(val)
		default:
			return nil, fmt.Errorf("Unknown input %q", kv[0])
		}
	}
	return &msg, nil
}

var (
	// TiltCmd sets the simulated attitude.
	TiltCmd = ishell.Cmd{
		Name:    "sim.tilt",
		Aliases: []string{"tilt"},
		Help:    "ROLL(degrees) [PITCH(degrees)]",
		Func: func(c *ishell.Context) {
			msg, err := ParseTilt(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			if err := sh.ShellFrom(c).Publish(telemetry.Topics.Tilt, msg); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		},
	}

	// InputCmd drives the simulated inputs.
	InputCmd = ishell.Cmd{
		Name:    "sim.input",
		Aliases: []string{"input"},
		Help:    "[motor1=POWER] [motor2=POWER] [throttle=US] [button=0|1] [volts=DECIVOLTS]",
		Func: func(c *ishell.Context) {
			msg, err := ParseInput(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			if err := sh.ShellFrom(c).Publish(telemetry.Topics.Input, msg); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		},
	}
)

func init() {
	sh.AddCmds(
		&TiltCmd,
		&InputCmd,
	)
}
