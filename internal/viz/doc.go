// Package viz renders benchmark progress and saved runs in the terminal.
//
//   - [Progress]: a bench.Observer drawing one progress bar per timed loop
//   - [Viewer]: a Bubble Tea browser over saved runs with per-loop plots
//
// # Key Bindings
//
//	j/k   - Select run
//	tab   - Cycle timed loop
//	t     - Cycle color theme
//	pgup  - Scroll plot
//	q     - Quit
package viz
