// Package logsetup configures process logging from a declarative Config on
// top of rs/zerolog: named formatters, console and size-rotated file
// handlers, and dotted logger scopes with their own thresholds and
// propagation. Every record carries the caller's file path and line number.
//
// Key features
//   - Idempotent initialization: SetupLog / Service.Initialize create the log
//     directory and file, validate the config and install it once
//   - Numbered size rotation (warnings.log.1 .. .10) or lumberjack rolling files
//   - Scopes handed out as explicit handles; a scope taken before
//     initialization starts writing once it completes
//   - Call instrumentation: Wrap0..Wrap3 and WrapKw log arguments before a
//     call and errors or panics, with a stack, after it
//   - Error history enrichment on Err, including the Station-Manager
//     DetailedError operations chain
//
// Typical usage
//
//	if err := logsetup.SetupLog(); err != nil { panic(err) }
//	defer logsetup.Default().Close()
//
//	log := logsetup.Default().Logger("plugins")
//	log.WarnWith().Str("plugin", name).Msg("plugin disabled")
package logsetup
