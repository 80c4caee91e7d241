package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Config string `short:"c" long:"config" default:"cobot.json" description:"Configuration file"`

	// Overrides of the configuration file
	Robot      string  `long:"robot" env:"ROBOT_IP" description:"Controller address"`
	DashPort   int     `long:"dash-port" env:"DASH_PORT" description:"Dashboard port"`
	MotionPort int     `long:"motion-port" env:"MOTION_PORT" description:"Motion port"`
	Timeout    float64 `long:"timeout" env:"TIMEOUT" description:"Command timeout in seconds"`
	PointsFile string  `long:"points" env:"POINT_JSON_PATH" description:"Waypoint file"`
	Sim        bool    `long:"sim" env:"SIMULATION" description:"Use the simulated robot"`
	LogLevel   string  `long:"log-level" env:"LOG_LEVEL" description:"Log level (debug, info, warn, error)"`

	Serve  ServeCommand  `command:"serve" description:"Run the HTTP control service"`
	Watch  WatchCommand  `command:"watch" description:"Chart the live robot status of a running service"`
	Setup  SetupCommand  `command:"setup" description:"Create the configuration file interactively"`
	Points PointsCommand `command:"points" description:"List the waypoints"`
	Send   SendCommand   `command:"send" description:"Send one raw command to the controller"`
	Move   MoveCommand   `command:"move" description:"Move to a waypoint"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "cobot - Dobot MG400 control client and service"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
