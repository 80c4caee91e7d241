package dobot

import (
	"fmt"
	"strconv"
	"strings"
)

// Port identifies which controller socket a command travels on.
type Port int

const (
	// Dashboard is the control-plane channel: lifecycle, status and digital I/O.
	Dashboard Port = iota
	// Motion is the data-plane channel for movement commands.
	Motion
)

func (p Port) String() string {
	switch p {
	case Dashboard:
		return "dashboard"
	case Motion:
		return "motion"
	default:
		return "port(" + strconv.Itoa(int(p)) + ")"
	}
}

// Command is a single controller instruction.
type Command struct {
	Port Port
	Verb string
	Args []string
}

// String renders the command in wire form, e.g. "MovJ(1,2,3,4)".
func (c Command) String() string {
	return c.Verb + "(" + strings.Join(c.Args, ",") + ")"
}

// motionVerbs are the commands the controller only accepts on the motion port.
var motionVerbs = map[string]bool{
	"MovJ": true, "MovL": true, "JointMovJ": true, "RelMovJ": true, "RelMovL": true,
	"MovLIO": true, "MovJIO": true, "Arc": true, "Circle": true, "MoveJog": true,
	"ServoJ": true, "ServoP": true, "Sync": true, "StartTrace": true, "StartPath": true,
}

// ParseCommand parses a command typed in wire form, e.g. "DO(1,1)". The port
// follows from the verb.
func ParseCommand(s string) (Command, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), ";")
	open := strings.IndexByte(s, '(')
	if open <= 0 || !strings.HasSuffix(s, ")") {
		return Command{}, fmt.Errorf("parse command %q: want Verb(args)", s)
	}
	cmd := Command{Verb: strings.TrimSpace(s[:open])}
	if motionVerbs[cmd.Verb] {
		cmd.Port = Motion
	}
	if inner := strings.TrimSpace(s[open+1 : len(s)-1]); inner != "" {
		for _, a := range strings.Split(inner, ",") {
			cmd.Args = append(cmd.Args, strings.TrimSpace(a))
		}
	}
	return cmd, nil
}

// Pose is a Cartesian target: x, y, z in millimetres and r, the end-effector
// rotation, in degrees.
type Pose struct {
	X, Y, Z, R float64
}

// MoveOptions are the optional MovJ parameters. Zero values are left out of
// the command so the controller applies its own defaults.
type MoveOptions struct {
	SpeedJ int // joint speed ratio, 1-100
	AccJ   int // joint acceleration ratio, 1-100
	CP     int // continuous path ratio, 0-100
}

func ResetRobot() Command   { return Command{Port: Dashboard, Verb: "ResetRobot"} }
func ClearError() Command   { return Command{Port: Dashboard, Verb: "ClearError"} }
func Continue() Command     { return Command{Port: Dashboard, Verb: "Continue"} }
func EnableRobot() Command  { return Command{Port: Dashboard, Verb: "EnableRobot"} }
func DisableRobot() Command { return Command{Port: Dashboard, Verb: "DisableRobot"} }
func RobotMode() Command    { return Command{Port: Dashboard, Verb: "RobotMode"} }

// DIExecute reads digital input index.
func DIExecute(index int) Command {
	return Command{Port: Dashboard, Verb: "DIExecute", Args: []string{strconv.Itoa(index)}}
}

// DO sets digital output index on or off.
func DO(index int, on bool) Command {
	v := "0"
	if on {
		v = "1"
	}
	return Command{Port: Dashboard, Verb: "DO", Args: []string{strconv.Itoa(index), v}}
}

// MovJ is a joint-interpolated move to p.
func MovJ(p Pose, opts MoveOptions) Command {
	args := []string{formatFloat(p.X), formatFloat(p.Y), formatFloat(p.Z), formatFloat(p.R)}
	if opts.SpeedJ != 0 {
		args = append(args, "SpeedJ="+strconv.Itoa(opts.SpeedJ))
	}
	if opts.AccJ != 0 {
		args = append(args, "AccJ="+strconv.Itoa(opts.AccJ))
	}
	if opts.CP != 0 {
		args = append(args, "CP="+strconv.Itoa(opts.CP))
	}
	return Command{Port: Motion, Verb: "MovJ", Args: args}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
