package source

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"unicode/utf8"
)

// Severity classifies a diagnostic. Warnings never stop compilation; errors
// set the Log's hasErrors flag (see Log.HasErrors).
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Kind buckets a diagnostic by abstract cause (spec §7), independent of the
// concrete Go error type that produced it. Kept on the diagnostic so tooling
// (and tests) can assert "this failure was a Symbol-class error" without
// string-matching the message.
type Kind string

const (
	KindParse     Kind = "parse"
	KindSymbol    Kind = "symbol"
	KindType      Kind = "type"
	KindSemantic  Kind = "semantic"
	KindCodegen   Kind = "codegen"
	KindNotYetImpl Kind = "not-yet-implemented"
)

// Diagnostic is one accumulated error or warning, with enough context to
// render a caret-underlined source snippet (spec §7 "User-visible failure").
type Diagnostic struct {
	Severity Severity
	Kind     Kind
	Message  string
	Span     Span

	Annotation   string   // text printed after the caret run
	Suggestion   string   // optional multi-line suggestion block
	MissingItems []string // exhaustiveness: missing match arms
}

// NewError builds an error-severity diagnostic at a single location.
func NewError(kind Kind, loc Location, message string) *Diagnostic {
	return &Diagnostic{Severity: SeverityError, Kind: kind, Message: message, Span: Span{Start: loc, End: loc}}
}

// NewWarning builds a warning-severity diagnostic at a single location.
func NewWarning(kind Kind, loc Location, message string) *Diagnostic {
	return &Diagnostic{Severity: SeverityWarning, Kind: kind, Message: message, Span: Span{Start: loc, End: loc}}
}

// NewErrorSpan builds an error-severity diagnostic covering a span, used
// where the underline should cover more than one token (e.g. a whole cast).
func NewErrorSpan(kind Kind, span Span, message string) *Diagnostic {
	return &Diagnostic{Severity: SeverityError, Kind: kind, Message: message, Span: span}
}

func (d *Diagnostic) WithAnnotation(a string) *Diagnostic   { d.Annotation = a; return d }
func (d *Diagnostic) WithSuggestion(s string) *Diagnostic   { d.Suggestion = s; return d }
func (d *Diagnostic) WithMissingItems(m []string) *Diagnostic { d.MissingItems = m; return d }

// Error implements the error interface so a Diagnostic can be thrown as a
// structured CompilerError in compiler mode (spec §4.6).
func (d *Diagnostic) Error() string { return d.Format() }

// Format renders the diagnostic the way the CLI prints it: "file:line:col:"
// then the message, then the source line, then a caret underline.
func (d *Diagnostic) Format() string {
	var buf strings.Builder
	loc := d.Span.Start

	if loc.Valid() {
		fmt.Fprintf(&buf, "%s: %s:%d:%d: %s\n\n", d.Severity, loc.File, loc.Line, loc.Column, d.Message)
	} else {
		fmt.Fprintf(&buf, "%s: %s\n\n", d.Severity, d.Message)
	}

	if loc.Valid() {
		lines, highlight, err := extractSourceLines(loc.File, loc.Line, 2)
		if err == nil {
			start := loc.Line - highlight
			for i, line := range lines {
				lineNum := start + i
				fmt.Fprintf(&buf, "  %4d | %s\n", lineNum, line)
				if i == highlight {
					indent := utf8.RuneCountInString(line[:min(loc.Column-1, len(line))])
					caretLen := d.Span.Len()
					fmt.Fprintf(&buf, "       | %s%s", strings.Repeat(" ", indent), strings.Repeat("^", caretLen))
					if d.Annotation != "" {
						fmt.Fprintf(&buf, " %s", d.Annotation)
					}
					buf.WriteByte('\n')
				}
			}
			buf.WriteByte('\n')
		}
	}

	if d.Suggestion != "" {
		fmt.Fprintf(&buf, "suggestion: %s\n", d.Suggestion)
	}
	if len(d.MissingItems) > 0 {
		fmt.Fprintf(&buf, "missing patterns: %s\n", strings.Join(d.MissingItems, ", "))
	}
	return buf.String()
}

// Log accumulates the diagnostics of a whole compilation (every package
// reports through the same Sink); in intellisense mode errors are pushed
// and compilation continues best-effort (spec §4.6).
type Log struct {
	mu          sync.Mutex
	diagnostics []*Diagnostic
	hasErrors   bool
}

// Push records a diagnostic and, for errors, raises hasErrors.
func (l *Log) Push(d *Diagnostic) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.diagnostics = append(l.diagnostics, d)
	if d.Severity == SeverityError {
		l.hasErrors = true
	}
}

// HasErrors reports whether any error-severity diagnostic was pushed.
func (l *Log) HasErrors() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hasErrors
}

// All returns a snapshot of accumulated diagnostics in push order.
func (l *Log) All() []*Diagnostic {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Diagnostic, len(l.diagnostics))
	copy(out, l.diagnostics)
	return out
}

// Errors filters All to error-severity diagnostics only.
func (l *Log) Errors() []*Diagnostic {
	var out []*Diagnostic
	for _, d := range l.All() {
		if d.Severity == SeverityError {
			out = append(out, d)
		}
	}
	return out
}

// sourceCache memoizes file contents so repeated diagnostics against the
// same file (common during inference, which revisits packages) don't
// re-read from disk. The cache is bounded: once full, the entry inserted
// earliest is evicted (a cache hit does not refresh an entry's position),
// which keeps this safe for long-running embeddings of the compiler (e.g.
// a future language server).
var (
	sourceCache      = make(map[string][]string)
	sourceCacheMu    sync.RWMutex
	sourceCacheLimit = 100
	sourceCacheKeys  = make([]string, 0, sourceCacheLimit)
)

func extractSourceLines(filename string, targetLine, context int) ([]string, int, error) {
	sourceCacheMu.RLock()
	allLines, cached := sourceCache[filename]
	sourceCacheMu.RUnlock()

	if !cached {
		content, err := os.ReadFile(filename)
		if err != nil {
			return nil, 0, fmt.Errorf("cannot read file: %w", err)
		}
		if !utf8.Valid(content) {
			return nil, 0, fmt.Errorf("file is not valid UTF-8")
		}
		normalized := strings.ReplaceAll(string(content), "\r\n", "\n")
		allLines = strings.Split(normalized, "\n")
		if len(allLines) > 0 && allLines[len(allLines)-1] == "" {
			allLines = allLines[:len(allLines)-1]
		}
		sourceCacheMu.Lock()
		addToSourceCache(filename, allLines)
		sourceCacheMu.Unlock()
	}

	targetIdx := targetLine - 1
	if targetIdx < 0 || targetIdx >= len(allLines) {
		return nil, 0, fmt.Errorf("line %d out of range (1-%d)", targetLine, len(allLines))
	}
	start := max(0, targetIdx-context)
	end := min(len(allLines), targetIdx+context+1)
	return allLines[start:end], targetIdx - start, nil
}

func addToSourceCache(filename string, lines []string) {
	for i, key := range sourceCacheKeys {
		if key == filename {
			sourceCacheKeys = append(sourceCacheKeys[:i], sourceCacheKeys[i+1:]...)
			sourceCacheKeys = append(sourceCacheKeys, filename)
			sourceCache[filename] = lines
			return
		}
	}
	if len(sourceCacheKeys) >= sourceCacheLimit {
		oldest := sourceCacheKeys[0]
		delete(sourceCache, oldest)
		sourceCacheKeys = sourceCacheKeys[1:]
	}
	sourceCacheKeys = append(sourceCacheKeys, filename)
	sourceCache[filename] = lines
}

// ClearSourceCache drops all cached file content. Call between independent
// top-level compilations when the core is embedded in a long-running host.
func ClearSourceCache() {
	sourceCacheMu.Lock()
	defer sourceCacheMu.Unlock()
	sourceCache = make(map[string][]string)
	sourceCacheKeys = make([]string, 0, sourceCacheLimit)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
