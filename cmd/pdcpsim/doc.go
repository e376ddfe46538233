// Package main provides the command-line driver for convergence protocol
// simulations.
//
// # Overview
//
// The pdcpsim executable loads a TOML scenario describing one or more radio
// bearers, wires each bearer's sending entity to its receiving entity
// through emulated lower layer channels, and drives the whole arrangement
// with a fixed simulated clock. When the run completes it reports per
// bearer statistics and the number of recorded trace events.
//
// # Usage
//
// Run the scenario named by the environment:
//
//	go run ./cmd/pdcpsim
//
// Run a specific scenario file:
//
//	go run ./cmd/pdcpsim -scenario scenarios/voice.toml
//
// # Configuration
//
// Process settings come from PDCPSIM_ environment variables:
//
//   - PDCPSIM_LOG_LEVEL: logrus level name (default: info)
//   - PDCPSIM_LOG_JSON: emit JSON log lines when true (default: false)
//   - PDCPSIM_SCENARIO: scenario file path (default: scenario.toml)
//   - PDCPSIM_SETTLE_TICKS: extra ticks after traffic stops so queued PDUs
//     land and timers resolve (default: 200)
//
// The -scenario flag overrides PDCPSIM_SCENARIO.
//
// # Exit Codes
//
//   - 0: the scenario ran to completion
//   - 1: settings, scenario or wiring errors
package main
