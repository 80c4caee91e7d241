package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/gwillem/cobot/pkg/dobot"
	"github.com/gwillem/cobot/pkg/operation"
)

type MoveCommand struct {
	SpeedJ int  `long:"speedj" default:"10" description:"Joint speed ratio (1-100)"`
	AccJ   int  `long:"accj" default:"10" description:"Joint acceleration ratio (1-100)"`
	Pick   bool `long:"pick" description:"Pick at the waypoint instead of only moving there"`
	Place  bool `long:"place" description:"Place at the waypoint instead of only moving there"`
	Enable bool `long:"enable" description:"Clear errors and enable the motors first"`

	Args struct {
		Point string `positional-arg-name:"point" description:"Waypoint name"`
	} `positional-args:"yes" required:"yes"`
}

func (c *MoveCommand) Execute(args []string) error {
	if c.Pick && c.Place {
		return fmt.Errorf("--pick and --place are mutually exclusive")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	tracker, err := openTracker(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer tracker.Close()

	if c.Enable {
		if _, err := tracker.Enable(ctx); err != nil {
			return err
		}
	}

	op := (*operation.Tracker).MoveTo
	switch {
	case c.Pick:
		op = (*operation.Tracker).Pick
	case c.Place:
		op = (*operation.Tracker).Place
	}

	st, err := op(tracker, ctx, c.Args.Point, dobot.MoveOptions{SpeedJ: c.SpeedJ, AccJ: c.AccJ})
	if err != nil {
		return err
	}
	fmt.Printf("%s %s (mode %s)\n", successStyle.Render(string(st.State)), c.Args.Point, st.Mode)
	return nil
}
