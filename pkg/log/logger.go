// Package log defines the logging interface used across atvremote.
//
// It exists so that internal packages depend on a small interface
// instead of a concrete logging library, following the same seam used
// by the reference CLI this module's scaffolding is patterned on.
package log

// Logger is the leveled, structured logging surface every package in
// this module talks to.
type Logger interface {
	Trace(args ...interface{})
	Tracef(format string, args ...interface{})

	Debug(args ...interface{})
	Debugf(format string, args ...interface{})

	Info(args ...interface{})
	Infof(format string, args ...interface{})

	Warn(args ...interface{})
	Warnf(format string, args ...interface{})

	Error(args ...interface{})
	Errorf(format string, args ...interface{})

	WithField(field string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger
}
