// Package main provides the entry point for snakeview.
//
// snakeview reads the output of a snake-robot simulation for display:
//
//   - Recorded logs (inspect, sample, replay)
//   - The live shared-memory region (listen)
//   - A synthetic gait writer for testing without the simulation (simulate)
//
// Usage:
//
//	snakeview inspect run.simlog
//	snakeview sample --at 1.25 -o json run.simlog
//	snakeview replay --speed 0.5 --ws-addr :8080 run.simlog
//	snakeview listen --record ./recordings display2Dconnection.datm
//	snakeview status :8080
//
// The exit status is 3 for log file errors, 4 for shared-memory errors, 5
// for query errors and 1 for anything else.
package main
