package source

// Mode selects the propagation policy for diagnostics (spec §4.6, §7):
// compiler mode aborts the current package on the first error; intellisense
// mode accumulates and never lets an error escape as a panic.
type Mode int

const (
	ModeCompiler Mode = iota
	ModeIntellisense
)

// fatalSignal is recovered by the driver at package boundaries. It is not a
// user-visible panic message — Sink.Error always logs the Diagnostic first,
// so the recovered value only needs to unwind the stack.
type fatalSignal struct{ diag *Diagnostic }

// Sink is the single entry point every compiler stage uses to report
// diagnostics. It owns a Log (so intellisense-mode callers can inspect
// everything accumulated so far) and a Mode (so compiler-mode callers get a
// single-error abort via panic/recover).
type Sink struct {
	Log  *Log
	Mode Mode
}

// NewSink creates a diagnostic sink in the given mode with a fresh Log.
func NewSink(mode Mode) *Sink {
	return &Sink{Log: &Log{}, Mode: mode}
}

// Error records an error diagnostic. In ModeCompiler it panics with a
// fatalSignal that Recover (called at each package boundary) turns back into
// a normal return; in ModeIntellisense it simply accumulates and returns.
func (s *Sink) Error(d *Diagnostic) {
	s.Log.Push(d)
	if s.Mode == ModeCompiler {
		panic(fatalSignal{diag: d})
	}
}

// Warn records a warning diagnostic. Warnings never abort compilation in
// either mode.
func (s *Sink) Warn(d *Diagnostic) {
	s.Log.Push(d)
}

// Recover must be deferred at every package boundary in compiler mode. It
// turns a fatalSignal panic raised by Error back into a nil return,
// propagating the package's hasErrors flag through the Log instead of an
// unwound stack. Any other panic value is re-raised: this sink only ever
// intercepts its own fatal signal.
func Recover() {
	if r := recover(); r != nil {
		if _, ok := r.(fatalSignal); ok {
			return
		}
		panic(r)
	}
}
