package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/gwillem/cobot/pkg/dobot"
)

type SendCommand struct {
	Args struct {
		Command []string `positional-arg-name:"command" description:"Commands in wire form, e.g. 'RobotMode()' 'DO(1,1)'"`
	} `positional-args:"yes" required:"yes"`
}

func (c *SendCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg.LogLevel)

	cmds := make([]dobot.Command, 0, len(c.Args.Command))
	for _, s := range c.Args.Command {
		cmd, err := dobot.ParseCommand(s)
		if err != nil {
			return err
		}
		cmds = append(cmds, cmd)
	}

	ctx := context.Background()
	robot, err := openRobot(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer robot.Close()

	for _, cmd := range cmds {
		resp, err := robot.Send(ctx, cmd)
		if err != nil {
			return fmt.Errorf("%s: %w", cmd, err)
		}
		fmt.Printf("%s %s %s\n", dimStyle.Render(cmd.Port.String()), cmd, successStyle.Render(resp.String()))
		if !resp.Complete() {
			fmt.Println(dimStyle.Render("  (reply has no terminator)"))
		}
		if len(resp.Ints) > 0 {
			nums := make([]string, len(resp.Ints))
			for i, n := range resp.Ints {
				nums[i] = fmt.Sprint(n)
			}
			fmt.Println(dimStyle.Render("  values: " + strings.Join(nums, " ")))
		}
	}
	return nil
}
