package dobot

import "testing"

func TestCommand_String(t *testing.T) {
	tests := []struct {
		cmd  Command
		port Port
		want string
	}{
		{ResetRobot(), Dashboard, "ResetRobot()"},
		{ClearError(), Dashboard, "ClearError()"},
		{Continue(), Dashboard, "Continue()"},
		{EnableRobot(), Dashboard, "EnableRobot()"},
		{DisableRobot(), Dashboard, "DisableRobot()"},
		{RobotMode(), Dashboard, "RobotMode()"},
		{DIExecute(2), Dashboard, "DIExecute(2)"},
		{DO(1, true), Dashboard, "DO(1,1)"},
		{DO(1, false), Dashboard, "DO(1,0)"},
		{MovJ(Pose{100, 200, 50, 0}, MoveOptions{}), Motion, "MovJ(100,200,50,0)"},
		{MovJ(Pose{12.5, -3, 0.25, 90}, MoveOptions{SpeedJ: 10}), Motion, "MovJ(12.5,-3,0.25,90,SpeedJ=10)"},
		{MovJ(Pose{1, 2, 3, 4}, MoveOptions{SpeedJ: 50, AccJ: 20, CP: 100}), Motion, "MovJ(1,2,3,4,SpeedJ=50,AccJ=20,CP=100)"},
		{MovJ(Pose{1, 2, 3, 4}, MoveOptions{AccJ: 20}), Motion, "MovJ(1,2,3,4,AccJ=20)"},
	}
	for _, tt := range tests {
		if got := tt.cmd.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
		if tt.cmd.Port != tt.port {
			t.Errorf("%s on %s, want %s", tt.want, tt.cmd.Port, tt.port)
		}
	}
}

func TestResponse_Positions(t *testing.T) {
	r := ParseResponse([]byte("0,{-42},GetAngle();"))
	if code, ok := r.Code(); !ok || code != 0 {
		t.Errorf("Code() = %d, %v", code, ok)
	}
	if v, ok := r.Int(1); !ok || v != -42 {
		t.Errorf("Int(1) = %d, %v; want -42", v, ok)
	}
	if _, ok := r.Int(2); ok {
		t.Error("Int(2) should be absent")
	}
	if _, ok := r.Int(-1); ok {
		t.Error("Int(-1) should be absent")
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		port    Port
		wantErr bool
	}{
		{"RobotMode()", "RobotMode()", Dashboard, false},
		{" DO(1, 1); ", "DO(1,1)", Dashboard, false},
		{"MovJ(100,200,50,0,SpeedJ=10)", "MovJ(100,200,50,0,SpeedJ=10)", Motion, false},
		{"MovL(1,2,3,4)", "MovL(1,2,3,4)", Motion, false},
		{"RobotMode", "", Dashboard, true},
		{"(1,2)", "", Dashboard, true},
		{"DO(1,1", "", Dashboard, true},
	}
	for _, tt := range tests {
		cmd, err := ParseCommand(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseCommand(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err != nil {
			continue
		}
		if cmd.String() != tt.want || cmd.Port != tt.port {
			t.Errorf("ParseCommand(%q) = %s on %s, want %s on %s", tt.in, cmd, cmd.Port, tt.want, tt.port)
		}
	}
}
