// Package ui provides styled CLI output for the Type-C compiler using lipgloss
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Color palette - carefully chosen for readability and aesthetics
var (
	colorPrimary   = lipgloss.Color("#F4A156") // Amber (Type-C brand)
	colorSecondary = lipgloss.Color("#56C3F4") // Cyan
	colorSuccess   = lipgloss.Color("#5AF78E") // Green
	colorWarning   = lipgloss.Color("#F7DC6F") // Yellow
	colorError     = lipgloss.Color("#FF6B9D") // Pink/Red
	colorMuted     = lipgloss.Color("#6C7086") // Gray

	colorText   = lipgloss.Color("#CDD6F4") // Light text
	colorSubtle = lipgloss.Color("#7F849C") // Subtle text
	colorBorder = lipgloss.Color("#45475A") // Border
)

// Styles
var (
	styleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorPrimary).
			Padding(0, 2).
			MarginBottom(1)

	styleVersion = lipgloss.NewStyle().
			Foreground(colorSubtle).
			Italic(true)

	styleSection = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorSecondary).
			MarginTop(1)

	styleFilePath = lipgloss.NewStyle().
			Foreground(colorText).
			Bold(true)

	styleSuccess = lipgloss.NewStyle().
			Foreground(colorSuccess).
			Bold(true)

	styleWarning = lipgloss.NewStyle().
			Foreground(colorWarning).
			Bold(true)

	styleError = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	styleMuted = lipgloss.NewStyle().
			Foreground(colorMuted).
			Italic(true)

	styleBox = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)
)

// BuildOutput renders the compile command's progress and summary.
type BuildOutput struct {
	start time.Time
}

func NewBuildOutput() *BuildOutput {
	return &BuildOutput{start: time.Now()}
}

// PrintHeader prints the tool banner with its version badge.
func (b *BuildOutput) PrintHeader(version string) {
	header := styleHeader.Render("tcc — Type-C compiler")
	fmt.Println(header)
	fmt.Println(styleVersion.Render("  " + version))
}

// PrintCompileStart announces the entry file being compiled.
func (b *BuildOutput) PrintCompileStart(entry string) {
	fmt.Println(styleSection.Render("Compiling"))
	fmt.Printf("  %s\n", styleFilePath.Render(entry))
}

// PrintStage prints one pipeline stage line (resolve, infer, lower, alloc).
func (b *BuildOutput) PrintStage(name string, detail string) {
	fmt.Printf("  %s %s %s\n", styleMuted.Render("›"), name, styleMuted.Render(detail))
}

// PrintSummary prints the final status with the elapsed wall time.
func (b *BuildOutput) PrintSummary(success bool, errCount, warnCount int) {
	elapsed := formatDuration(time.Since(b.start))
	switch {
	case success && warnCount == 0:
		fmt.Println(styleSuccess.Render("✓ build succeeded") + styleMuted.Render(" in "+elapsed))
	case success:
		fmt.Printf("%s %s%s\n", styleSuccess.Render("✓ build succeeded"), styleWarning.Render(fmt.Sprintf("(%d warnings)", warnCount)), styleMuted.Render(" in "+elapsed))
	default:
		fmt.Printf("%s %s\n", styleError.Render("✗ build failed"), styleMuted.Render(fmt.Sprintf("%d errors, %d warnings, %s", errCount, warnCount, elapsed)))
	}
}

// PrintError prints a single pre-rendered diagnostic block.
func (b *BuildOutput) PrintError(msg string) {
	fmt.Println(styleError.Render(msg))
}

// PrintWarning prints a warning diagnostic block.
func (b *BuildOutput) PrintWarning(msg string) {
	fmt.Println(styleWarning.Render(msg))
}

// PrintIRDumpHeader labels the --generate-ir text dump.
func (b *BuildOutput) PrintIRDumpHeader(path string) {
	fmt.Println(styleSection.Render("IR dump"))
	fmt.Printf("  %s\n", styleFilePath.Render(path))
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// Box draws a titled, bordered block around content.
func Box(title, content string) string {
	if title != "" {
		content = styleSection.Render(title) + "\n" + content
	}
	return styleBox.Render(content)
}

// Divider returns a muted horizontal rule.
func Divider() string {
	return styleMuted.Render(strings.Repeat("─", 50))
}

// PrintHelp prints the top-level usage text.
func PrintHelp(version string) {
	fmt.Println(styleHeader.Render("tcc — Type-C compiler"))
	fmt.Println(styleVersion.Render("  " + version))
	fmt.Println()
	fmt.Println(styleSection.Render("Usage"))
	fmt.Println("  tcc compile <dir>     compile a project directory")
	fmt.Println("  tcc init [folder]     scaffold a new project")
	fmt.Println("  tcc stdlib <cmd>      manage the standard library clone")
	fmt.Println()
	fmt.Println(styleSection.Render("Flags"))
	fmt.Println("  --output <dir>          bin output folder (default \"bin\")")
	fmt.Println("  --run                   invoke the VM on the produced binary")
	fmt.Println("  --generate-ir           also emit IR text + DOT CFG")
	fmt.Println("  --no-warnings           suppress warning logs")
	fmt.Println("  --no-generate-binaries  type-check only")
}
