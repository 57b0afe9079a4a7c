// Package logging builds the process logger on log/slog.
//
// Every record carries service and version attributes. Components get a
// child logger from Component, which adds a "component" attribute and
// shares the parent's level, so SetLevel on the root logger changes every
// component at once.
//
//	logging:
//	  level: info      # debug, info, warn, error
//	  format: json     # json, text
//	  output: stdout   # stdout, stderr, discard
//
// Usage:
//
//	log := logging.New(cfg.Logging, version)
//	pipe := pipeline.New(pcfg, sinks, store, log.Component("pipeline"))
//
// Attributes whose key contains token, password, secret or authorization
// are written as [REDACTED]. Durations are written as strings ("1.5s").
package logging
