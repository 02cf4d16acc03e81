// Package logger defines the small leveled-logging seam used across this
// core: the node transformer (which opcode shape a loop or let-wrapper
// lowered to) and the module scope (module-cache population) log through
// this interface rather than fmt.Println; the scope and activation packages
// take no logger and log nothing. This mirrors
// how the teacher's machine.Thread exposes overridable Stdout/Stderr instead
// of hardcoding os.Stdout.
package logger

// Logger is satisfied by a no-op default and overridable by the embedder.
// Debug-level detail is for diagnostics an embedder can opt into; Warn-level
// is for conditions worth surfacing by default without being an error.
type Logger interface {
	Debugf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

// Nop discards everything logged through it. It is the default used by
// every component in this core that accepts a Logger.
var Nop Logger = nopLogger{}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Warnf(string, ...interface{})  {}
