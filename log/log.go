// Copyright 2026 The Lattice Authors
// This file is part of Lattice.
//
// Lattice is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Lattice is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Lattice. If not, see <http://www.gnu.org/licenses/>.

// Package log implements the leveled, structured logger used throughout
// the runtime: Trace/Debug/Info/Warn/Error/Crit, each taking a message and
// an optional list of key=value pairs. Output is colorized when writing to
// a terminal. Logging never affects control flow — a VM with no Logger
// attached behaves identically to one logging at Crit.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Level orders the logger's severities, least to most severe.
type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelCrit
)

var levelNames = [...]string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR", "CRIT"}

func (l Level) String() string {
	if int(l) < 0 || int(l) >= len(levelNames) {
		return "UNKNOWN"
	}
	return levelNames[l]
}

var levelColor = [...]*color.Color{
	LevelTrace: color.New(color.FgHiBlack),
	LevelDebug: color.New(color.FgCyan),
	LevelInfo:  color.New(color.FgGreen),
	LevelWarn:  color.New(color.FgYellow),
	LevelError: color.New(color.FgRed),
	LevelCrit:  color.New(color.FgHiRed, color.Bold),
}

// Logger is a minimal leveled logger. The zero Logger is not usable; use
// New or Root.
type Logger struct {
	mu       sync.Mutex
	out      io.Writer
	minLevel Level
	colorize bool
	fields   []any // inherited key=value pairs from With
}

// New constructs a Logger writing to w at minLevel and above. Colorized
// output is enabled automatically when w is a terminal.
func New(w io.Writer, minLevel Level) *Logger {
	colorize := false
	if f, ok := w.(*os.File); ok {
		colorize = isatty.IsTerminal(f.Fd())
		w = colorable.NewColorable(f)
	}
	return &Logger{out: w, minLevel: minLevel, colorize: colorize}
}

// root is the package-level default logger, a ready-to-use counterpart to
// the constructible ones.
var root = New(os.Stderr, LevelInfo)

// Root returns the package-level default Logger.
func Root() *Logger { return root }

// SetLevel adjusts the minimum level root (or l) will emit.
func (l *Logger) SetLevel(lvl Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.minLevel = lvl
}

// With returns a derived Logger that prepends ctx's key=value pairs (ctx
// must have an even length: key, value, key, value, ...) to every message
// logged through it, without mutating l.
func (l *Logger) With(ctx ...any) *Logger {
	merged := make([]any, 0, len(l.fields)+len(ctx))
	merged = append(merged, l.fields...)
	merged = append(merged, ctx...)
	return &Logger{out: l.out, minLevel: l.minLevel, colorize: l.colorize, fields: merged}
}

func (l *Logger) log(lvl Level, msg string, ctx []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lvl < l.minLevel {
		return
	}
	var b strings.Builder
	b.WriteString(time.Now().UTC().Format("15:04:05.000"))
	b.WriteByte(' ')
	tag := "[" + lvl.String() + "]"
	if l.colorize {
		tag = levelColor[lvl].Sprint(tag)
	}
	b.WriteString(tag)
	b.WriteByte(' ')
	b.WriteString(msg)
	writeFields(&b, l.fields)
	writeFields(&b, ctx)
	b.WriteByte('\n')
	io.WriteString(l.out, b.String())
}

func writeFields(b *strings.Builder, kv []any) {
	for i := 0; i+1 < len(kv); i += 2 {
		b.WriteByte(' ')
		fmt.Fprintf(b, "%v=%v", kv[i], kv[i+1])
	}
}

func (l *Logger) Trace(msg string, ctx ...any) { l.log(LevelTrace, msg, ctx) }
func (l *Logger) Debug(msg string, ctx ...any) { l.log(LevelDebug, msg, ctx) }
func (l *Logger) Info(msg string, ctx ...any)  { l.log(LevelInfo, msg, ctx) }
func (l *Logger) Warn(msg string, ctx ...any)  { l.log(LevelWarn, msg, ctx) }
func (l *Logger) Error(msg string, ctx ...any) { l.log(LevelError, msg, ctx) }
func (l *Logger) Crit(msg string, ctx ...any)  { l.log(LevelCrit, msg, ctx) }

// Package-level convenience functions logging through Root().
func Trace(msg string, ctx ...any) { root.Trace(msg, ctx...) }
func Debug(msg string, ctx ...any) { root.Debug(msg, ctx...) }
func Info(msg string, ctx ...any)  { root.Info(msg, ctx...) }
func Warn(msg string, ctx ...any)  { root.Warn(msg, ctx...) }
func Error(msg string, ctx ...any) { root.Error(msg, ctx...) }
func Crit(msg string, ctx ...any)  { root.Crit(msg, ctx...) }
