package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

type level int

const (
	levelInfo level = iota
	levelOK
	levelWarn
	levelError
)

var levelStyles = map[level]struct{ tag, color string }{
	levelInfo:  {"INFO", "\x1b[34m"},
	levelOK:    {"OK", "\x1b[32m"},
	levelWarn:  {"WARN", "\x1b[33m"},
	levelError: {"ERROR", "\x1b[31m"},
}

const (
	ansiReset  = "\x1b[0m"
	labelWidth = 22
)

// statusPrinter renders the sectioned report shown by `dengbej status`.
type statusPrinter struct {
	out      io.Writer
	color    bool
	sections int
}

func newStatusPrinter(out io.Writer) *statusPrinter {
	return &statusPrinter{out: out, color: isTerminal(out)}
}

func (p *statusPrinter) section(title string) {
	if p.sections > 0 {
		fmt.Fprintln(p.out)
	}
	p.sections++
	header := "== " + title + " =="
	rule := strings.Repeat("-", len(header))
	if p.color {
		header, rule = p.paint(levelInfo, header), p.paint(levelInfo, rule)
	}
	fmt.Fprintln(p.out, header)
	fmt.Fprintln(p.out, rule)
}

func (p *statusPrinter) line(label string, lvl level, detail string) {
	fmt.Fprintln(p.out, formatStatusLine(label, lvl, detail, p.color))
}

func (p *statusPrinter) paint(lvl level, s string) string {
	return levelStyles[lvl].color + s + ansiReset
}

func formatStatusLine(label string, lvl level, detail string, color bool) string {
	text := fmt.Sprintf("  %-*s [%s]", labelWidth, label+":", levelStyles[lvl].tag)
	if detail != "" {
		text += " " + detail
	}
	if color {
		return levelStyles[lvl].color + text + ansiReset
	}
	return text
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
