// Package bootstrap starts the browser process.
//
// Application.OnCreate runs in every process. It installs logging and the
// crash hook, then asks the process gate whether this is the primary
// process. Secondary processes stop there. The primary process schedules
// subsystem wiring on the main loop, after the host reports it is ready or
// after a short delay, so that nothing heavy runs on the startup critical
// path. Wiring runs once, in a fixed order:
//
//  1. engine warm-up (fatal on error)
//  2. add-on dependency provider (fatal on error)
//  3. web-extension support with the tab callbacks
//  4. telemetry subsystems
//  5. push messaging, when configured
//
// When wiring completes the lifecycle signal becomes true. Memory-pressure
// callbacks are relayed to the store and the icon cache at any time, in the
// primary process only.
package bootstrap
