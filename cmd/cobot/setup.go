package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.bug.st/serial"

	"github.com/gwillem/cobot/pkg/config"
	"github.com/gwillem/cobot/pkg/gripper"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type SetupCommand struct{}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("cobot setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━"))
	fmt.Println()

	cfg := config.Default()
	if config.Exists(opts.Config) {
		loaded, err := config.LoadFrom(opts.Config)
		if err != nil {
			return err
		}
		cfg = loaded
		fmt.Printf("Editing %s\n\n", opts.Config)
	}

	// Step 1: Controller
	if err := askRobot(cfg); err != nil {
		return err
	}

	// Step 2: Gripper
	fmt.Println()
	fmt.Println(subHeaderStyle.Render("━━━ Gripper ━━━"))
	fmt.Println()
	if err := askGripper(cfg); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.SaveTo(opts.Config); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	fmt.Println()
	fmt.Println("Start the service with: " + headerStyle.Render("cobot serve"))
	return nil
}

func validPort(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 || n > 65535 {
		return errors.New("enter a port number between 1 and 65535")
	}
	return nil
}

func askRobot(cfg *config.Config) error {
	rc := &cfg.Robot
	backend := string(rc.Backend)
	points := cfg.Waypoints

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("How is the controller connected?").
				Options(
					huh.NewOption("Ethernet (dashboard and motion ports)", string(config.TCP)),
					huh.NewOption("Serial line", string(config.Serial)),
					huh.NewOption("No robot, simulate it", string(config.Sim)),
				).
				Value(&backend),
			huh.NewInput().
				Title("Waypoint file").
				Value(&points),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}
	rc.Backend = config.Backend(backend)
	cfg.Waypoints = points

	switch rc.Backend {
	case config.TCP:
		dash := strconv.Itoa(rc.DashboardPort)
		motion := strconv.Itoa(rc.MotionPort)
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().Title("Controller address").Value(&rc.Host),
				huh.NewInput().Title("Dashboard port").Value(&dash).Validate(validPort),
				huh.NewInput().Title("Motion port").Value(&motion).Validate(validPort),
			),
		)
		if err := form.Run(); err != nil {
			return err
		}
		rc.DashboardPort, _ = strconv.Atoi(strings.TrimSpace(dash))
		rc.MotionPort, _ = strconv.Atoi(strings.TrimSpace(motion))

	case config.Serial:
		port, err := selectSerialPort("Which serial port is the controller on?")
		if err != nil {
			return err
		}
		rc.SerialPort = port
	}
	return nil
}

// listPorts returns the serial ports, without macOS Bluetooth ports.
func listPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	var out []string
	for _, p := range ports {
		if !strings.Contains(p, "Bluetooth") {
			out = append(out, p)
		}
	}
	return out, nil
}

func selectSerialPort(title string) (string, error) {
	ports, err := listPorts()
	if err != nil {
		return "", err
	}
	if len(ports) == 0 {
		return "", errors.New("no serial ports found; is the cable connected?")
	}

	var port string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(title).
				Options(huh.NewOptions(ports...)...).
				Value(&port),
		),
	)
	if err := form.Run(); err != nil {
		return "", err
	}
	return port, nil
}

func askGripper(cfg *config.Config) error {
	gc := &cfg.Gripper
	kind := string(gc.Kind)
	if kind == "" {
		kind = string(config.GripperOutput)
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("What drives the gripper?").
				Options(
					huh.NewOption("Controller digital output (valve or relay)", string(config.GripperOutput)),
					huh.NewOption("Feetech bus servo", string(config.GripperServo)),
				).
				Value(&kind),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}
	gc.Kind = config.GripperKind(kind)

	if gc.Kind == config.GripperOutput {
		out := strconv.Itoa(max(gc.Output, gripper.DefaultOutput))
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Digital output index").
					Description("Output on closes the gripper").
					Value(&out).
					Validate(func(s string) error {
						if n, err := strconv.Atoi(strings.TrimSpace(s)); err != nil || n < 1 {
							return errors.New("enter an output index of 1 or more")
						}
						return nil
					}),
			),
		)
		if err := form.Run(); err != nil {
			return err
		}
		gc.Output, _ = strconv.Atoi(strings.TrimSpace(out))
		gc.Servo = nil
		return nil
	}

	servo, err := calibrateGripperServo()
	if err != nil {
		return err
	}
	gc.Servo = servo
	return nil
}

type foundGripper struct {
	port  string
	servo feetech.FoundServo
}

// findGripperServos scans every serial port for Feetech servos.
func findGripperServos() []foundGripper {
	ports, err := listPorts()
	if err != nil {
		fmt.Println(err)
		return nil
	}

	var found []foundGripper
	for _, port := range ports {
		bus, err := openServoBus(port)
		if err != nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		servos, err := bus.Scan(ctx, 1, 6)
		cancel()
		bus.Close()
		if err != nil {
			continue
		}
		for _, s := range servos {
			fmt.Printf("  Found servo %d on %s\n", s.ID, port)
			found = append(found, foundGripper{port: port, servo: s})
		}
	}
	return found
}

func openServoBus(port string) (*feetech.Bus, error) {
	return feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: gripper.DefaultServoBaudRate,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
}

func calibrateGripperServo() (*gripper.ServoConfig, error) {
	fmt.Println("Scanning for gripper servos...")
	found := findGripperServos()
	if len(found) == 0 {
		return nil, errors.New("no Feetech servos found; make sure the gripper is connected and powered on")
	}

	choice := 0
	options := make([]huh.Option[int], len(found))
	for i, f := range found {
		options[i] = huh.NewOption(fmt.Sprintf("servo %d on %s", f.servo.ID, f.port), i)
	}
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Title("Which servo drives the gripper?").
				Options(options...).
				Value(&choice),
		),
	)
	if err := form.Run(); err != nil {
		return nil, err
	}
	target := found[choice]

	bus, err := openServoBus(target.port)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", target.port, err)
	}
	defer bus.Close()

	servo := feetech.NewServo(bus, target.servo.ID, target.servo.Model)
	ctx := context.Background()

	// Disable torque so the user can move the jaws by hand
	if err := servo.Disable(ctx); err != nil {
		return nil, fmt.Errorf("disable servo: %w", err)
	}

	fmt.Println()
	fmt.Println(subHeaderStyle.Render("Record range of motion"))
	fmt.Println("Open the jaws fully, then close them fully.")
	fmt.Println()

	pos, err := servo.Position(ctx)
	if err != nil {
		return nil, fmt.Errorf("read position: %w", err)
	}

	p := tea.NewProgram(newCalibrationModel(servo, pos))
	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("run calibration: %w", err)
	}
	cm := final.(calibrationModel)
	if cm.maxPos-cm.minPos < 50 {
		return nil, fmt.Errorf("range %d-%d is too small; move the jaws further", cm.minPos, cm.maxPos)
	}

	cfg := &gripper.ServoConfig{
		Port:     target.port,
		BaudRate: gripper.DefaultServoBaudRate,
		Calibration: gripper.Calibration{
			ID:       target.servo.ID,
			RangeMin: cm.minPos,
			RangeMax: cm.maxPos,
		},
	}

	// Record the two grip positions in calibrated units
	for _, step := range []struct {
		prompt string
		dst    *float64
	}{
		{"Move the jaws to the OPEN position", &cfg.OpenPosition},
		{"Move the jaws to the CLOSED (gripping) position", &cfg.ClosedPosition},
	} {
		if err := waitForUser(step.prompt); err != nil {
			return nil, err
		}
		raw, err := servo.Position(ctx)
		if err != nil {
			return nil, fmt.Errorf("read position: %w", err)
		}
		*step.dst = cfg.Calibration.Normalize(raw)
		fmt.Printf("  %s %.1f\n", dimStyle.Render("recorded"), *step.dst)
	}

	fmt.Println()
	fmt.Println("Gripper calibrated.")
	return cfg, nil
}

func waitForUser(prompt string) error {
	fmt.Println(prompt)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("").
				Affirmative("Continue").
				Negative("").
				Value(new(bool)),
		),
	)
	return form.Run()
}

// Calibration TUI model
type calibrationModel struct {
	servo    *feetech.Servo
	curPos   int
	minPos   int
	maxPos   int
	quitting bool
}

type tickMsg time.Time

func newCalibrationModel(servo *feetech.Servo, pos int) calibrationModel {
	return calibrationModel{
		servo:  servo,
		curPos: pos,
		minPos: pos,
		maxPos: pos,
	}
}

func calibrationTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m calibrationModel) Init() tea.Cmd {
	return calibrationTick()
}

func (m calibrationModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter", "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		if pos, err := m.servo.Position(context.Background()); err == nil {
			m.curPos = pos
			m.minPos = min(m.minPos, pos)
			m.maxPos = max(m.maxPos, pos)
		}
		return m, calibrationTick()
	}

	return m, nil
}

func (m calibrationModel) View() string {
	if m.quitting {
		return ""
	}

	headStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	currentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Padding(0, 1)
	rangeGoodStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Padding(0, 1)
	rangeLowStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)

	rangeSize := m.maxPos - m.minPos
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Current", "Min", "Max", "Range").
		Row(strconv.Itoa(m.curPos), strconv.Itoa(m.minPos), strconv.Itoa(m.maxPos), strconv.Itoa(rangeSize)).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headStyle
			case col == 0:
				return currentStyle
			case col == 3 && rangeSize >= 200:
				return rangeGoodStyle
			case col == 3:
				return rangeLowStyle
			default:
				return cellStyle
			}
		})

	var sb strings.Builder
	sb.WriteString(t.Render())
	sb.WriteString("\n\n")
	sb.WriteString(dimStyle.Render("Press Enter when done"))
	return sb.String()
}
