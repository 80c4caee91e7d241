// Package cobot controls a Dobot MG400 robot arm over its ASCII TCP protocol.
//
// The controller exposes a dashboard port for lifecycle, status and I/O
// commands and a motion port for movement. cobot keeps one serialized channel
// per port, waits for motions to finish by polling the robot mode, and tracks
// pick and place operations on top.
//
// # Installation
//
//	go install github.com/gwillem/cobot/cmd/cobot@latest
//
// # Usage
//
// Create a configuration file and calibrate an optional servo gripper:
//
//	cobot setup
//
// Run the HTTP service, or try it without a robot:
//
//	cobot serve
//	cobot --sim serve
//
// Watch a running service:
//
//	cobot watch
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/cobot: CLI with serve, watch, setup, points, send and move commands
//   - pkg/dobot: Controller protocol, TCP, serial and simulated backends
//   - pkg/waypoint: Named waypoints loaded from point.json
//   - pkg/gripper: Digital output and Feetech servo grippers
//   - pkg/operation: Operation state tracking
//   - pkg/config: Configuration file
//   - pkg/api: HTTP and websocket service
package cobot
