package source

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDiagnosticFormatRendersCaretUnderline(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test.tc")
	content := "fn add(x: i32, y: i32) -> i32 = x + y\nfn main() -> u32 {\n    return 0\n}\n"
	if err := os.WriteFile(testFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	defer ClearSourceCache()

	loc := Location{File: testFile, Line: 1, Column: 8}
	d := NewError(KindType, loc, "undefined parameter type").WithAnnotation("here")

	out := d.Format()
	if !strings.Contains(out, "error: "+testFile+":1:8: undefined parameter type") {
		t.Fatalf("missing header, got:\n%s", out)
	}
	if !strings.Contains(out, "^") {
		t.Fatalf("missing caret underline, got:\n%s", out)
	}
	if !strings.Contains(out, "here") {
		t.Fatalf("missing annotation, got:\n%s", out)
	}
}

func TestLogAccumulatesAndTracksErrors(t *testing.T) {
	log := &Log{}
	log.Push(NewWarning(KindSymbol, Location{File: "a.tc", Line: 1, Column: 1}, "shadowed binding"))
	if log.HasErrors() {
		t.Fatal("warning alone must not set hasErrors")
	}
	log.Push(NewError(KindSymbol, Location{File: "a.tc", Line: 2, Column: 1}, "duplicate symbol"))
	if !log.HasErrors() {
		t.Fatal("expected hasErrors after pushing an error diagnostic")
	}
	if len(log.All()) != 2 {
		t.Fatalf("expected 2 diagnostics, got %d", len(log.All()))
	}
	if len(log.Errors()) != 1 {
		t.Fatalf("expected 1 error diagnostic, got %d", len(log.Errors()))
	}
}

func TestSinkCompilerModeAbortsOnError(t *testing.T) {
	sink := NewSink(ModeCompiler)
	aborted := func() (aborted bool) {
		defer Recover()
		aborted = true
		sink.Error(NewError(KindType, Location{File: "a.tc", Line: 1, Column: 1}, "boom"))
		// Unreachable in compiler mode: Error panics with the fatal signal.
		aborted = false
		return aborted
	}()
	if !aborted {
		t.Fatal("expected Recover to absorb the fatal signal and report aborted")
	}
	if !sink.Log.HasErrors() {
		t.Fatal("expected the error to still be logged before the panic")
	}
}

func TestSinkIntellisenseModeNeverPanics(t *testing.T) {
	sink := NewSink(ModeIntellisense)
	sink.Error(NewError(KindType, Location{File: "a.tc", Line: 1, Column: 1}, "boom"))
	sink.Warn(NewWarning(KindSymbol, Location{File: "a.tc", Line: 2, Column: 1}, "shadow"))
	if len(sink.Log.All()) != 2 {
		t.Fatalf("expected 2 diagnostics accumulated, got %d", len(sink.Log.All()))
	}
}
