package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/cobot/pkg/waypoint"
)

type PointsCommand struct{}

func (c *PointsCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	points, err := waypoint.Load(cfg.Waypoints)
	if err != nil {
		return err
	}

	fmt.Println(headerStyle.Render("Waypoints") + " " + dimStyle.Render(cfg.Waypoints))
	fmt.Println(renderPoints(points))
	return nil
}

func renderPoints(points waypoint.Store) string {
	nameStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	headStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1).Align(lipgloss.Right)

	format := func(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

	names := points.Names()
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		p := points[name].Pose
		rows = append(rows, []string{name, format(p.X), format(p.Y), format(p.Z), format(p.R)})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Name", "X", "Y", "Z", "R").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headStyle
			case col == 0:
				return nameStyle
			default:
				return cellStyle
			}
		})
	return t.Render()
}
