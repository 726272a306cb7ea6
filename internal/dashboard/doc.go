// Package dashboard is the interactive console for one inference server.
//
// The Model is a bubbletea program with four views over a single
// telemetry.Session:
//
//	LOG          accumulated server output, following the tail
//	PERFORMANCE  per-model latency and per-device utilization tables
//	CONFIG       model registry summary and the raw configuration
//	OVERVIEW     model and device proportion charts plus an expandable
//	             stacked-bar panel of per-step timings
//
// All session mutation happens inside Update. Fetches run as tea.Cmds
// that return result messages; each carries the session ticket it was
// issued under so late or superseded results are dropped. A timer tick
// every refresh interval starts a liveness check followed by the log and
// metric pair, regardless of which view is showing.
package dashboard
