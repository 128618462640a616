package text

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/go-git/go-billy/v5"
	"github.com/mattn/go-isatty"

	"github.com/olusolaa/sandbox-differ/internal/core/domain"
	"github.com/olusolaa/sandbox-differ/internal/core/ports"
	"github.com/olusolaa/sandbox-differ/internal/reporting"
)

const SinkTypeText = "text"

const none = "(none)"

type Config struct {
	NoColor bool `mapstructure:"no_color"`
}

// Sink appends every report as a timestamped text artifact below the output
// root and prints a short summary to the console.
type Sink struct {
	output  billy.Filesystem
	console io.Writer
	logger  ports.Logger

	red, green, yellow, cyan, magenta *color.Color
}

var _ ports.ReportSink = (*Sink)(nil)

func NewSink(cfg Config, output billy.Filesystem, console io.Writer, logger ports.Logger) *Sink {
	if console == nil {
		console = os.Stdout
	}
	s := &Sink{
		output:  output,
		console: console,
		logger:  logger,
		red:     color.New(color.FgRed),
		green:   color.New(color.FgGreen),
		yellow:  color.New(color.FgYellow),
		cyan:    color.New(color.FgCyan),
		magenta: color.New(color.FgMagenta, color.Bold),
	}
	if cfg.NoColor || !isTerminal(console) {
		for _, c := range []*color.Color{s.red, s.green, s.yellow, s.cyan, s.magenta} {
			c.DisableColor()
		}
	} else {
		for _, c := range []*color.Color{s.red, s.green, s.yellow, s.cyan, s.magenta} {
			c.EnableColor()
		}
	}
	return s
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (s *Sink) Type() string { return SinkTypeText }

func (s *Sink) Write(ctx context.Context, report *domain.ComparisonReport) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	location, err := reporting.WriteArtifact(s.output, reporting.ArtifactPath(report, ".txt"), Render(report))
	if err != nil {
		return "", err
	}
	s.logger.Debugf(ctx, "Text report written to %s", location)
	s.printSummary(report, location)
	return location, nil
}

func (s *Sink) printSummary(report *domain.ComparisonReport, location string) {
	tw := tabwriter.NewWriter(s.console, 0, 8, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintf(tw, "Comparison of %s against baseline from %s\n",
		report.Target, report.BaselineCreatedAt.UTC().Format(time.RFC3339))
	if !report.HasChanges() {
		fmt.Fprintf(tw, "%s\n", s.green.Sprint("No changes since baseline."))
	} else {
		fmt.Fprintf(tw, "Added:\t%s\n", s.green.Sprint(len(report.Added())))
		fmt.Fprintf(tw, "Removed:\t%s\n", s.red.Sprint(len(report.Removed())))
		fmt.Fprintf(tw, "Modified:\t%s\n", s.yellow.Sprint(len(report.Modified())))
		fmt.Fprintf(tw, "Preference changes:\t%s\n", s.cyan.Sprint(len(report.Preferences)))
		fmt.Fprintf(tw, "Database changes:\t%s\n", s.magenta.Sprint(len(report.Databases)))
	}
	fmt.Fprintf(tw, "Report:\t%s\n", location)
}

// Render produces the persisted report text. Sections always appear in the
// same order and every byte of the output is ASCII.
func Render(report *domain.ComparisonReport) []byte {
	var b bytes.Buffer

	fmt.Fprintf(&b, "Comparison Report\n")
	fmt.Fprintf(&b, "=================\n")
	fmt.Fprintf(&b, "Target:   %s\n", escape(string(report.Target)))
	fmt.Fprintf(&b, "Run:      %s\n", escape(report.ID))
	fmt.Fprintf(&b, "Created:  %s\n", report.CreatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Baseline: %s\n", report.BaselineCreatedAt.UTC().Format(time.RFC3339))

	writeChanges(&b, "Added", report.Added(), func(c domain.ChangeRecord) string {
		return fmt.Sprintf("%s  %s", escape(c.Path), c.NewHash)
	})
	writeChanges(&b, "Removed", report.Removed(), func(c domain.ChangeRecord) string {
		return fmt.Sprintf("%s  %s", escape(c.Path), c.OldHash)
	})
	writeChanges(&b, "Modified", report.Modified(), func(c domain.ChangeRecord) string {
		return fmt.Sprintf("%s  %s -> %s", escape(c.Path), c.OldHash, c.NewHash)
	})

	section(&b, "Preference Changes", len(report.Preferences))
	for _, p := range report.Preferences {
		if p.New {
			fmt.Fprintf(&b, "%s  (new preference file)\n", escape(p.Path))
			continue
		}
		fmt.Fprintf(&b, "%s\n", escape(p.Path))
		for _, line := range strings.Split(strings.TrimSuffix(p.Diff, "\n"), "\n") {
			fmt.Fprintf(&b, "    %s\n", escape(line))
		}
	}

	section(&b, "Database Changes", len(report.Databases))
	for _, d := range report.Databases {
		if d.New {
			fmt.Fprintf(&b, "%s  (new database)  %s\n", escape(d.Path), d.NewHash)
			continue
		}
		fmt.Fprintf(&b, "%s  %s -> %s\n", escape(d.Path), d.OldHash, d.NewHash)
	}

	return b.Bytes()
}

func writeChanges(b *bytes.Buffer, title string, changes []domain.ChangeRecord, line func(domain.ChangeRecord) string) {
	section(b, title, len(changes))
	for _, c := range changes {
		fmt.Fprintf(b, "%s\n", line(c))
	}
}

func section(b *bytes.Buffer, title string, count int) {
	fmt.Fprintf(b, "\n[%s] %d\n", title, count)
	if count == 0 {
		fmt.Fprintf(b, "%s\n", none)
	}
}

// escape rewrites anything outside printable ASCII as \uXXXX (or \UXXXXXXXX
// beyond the BMP). Tabs survive; invalid UTF-8 bytes become \xNN.
func escape(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == utf8.RuneError && size == 1:
			fmt.Fprintf(&b, `\x%02X`, s[i])
		case r == '\\':
			b.WriteString(`\\`)
		case r == '\t' || (r >= 0x20 && r < 0x7f):
			b.WriteRune(r)
		case r > 0xffff:
			fmt.Fprintf(&b, `\U%08X`, r)
		default:
			fmt.Fprintf(&b, `\u%04X`, r)
		}
		i += size
	}
	return b.String()
}
