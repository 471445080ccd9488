/*
 * Copyright 2025 SREDiag Authors
 * Copyright 2023 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package logger is the leveled logger shared by the mapping providers,
// adapters and the command line tool.
package logger

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"
)

// Log levels. NoPrint silences everything.
const (
	LevelTrace = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelNoPrint
)

// Logger writes leveled, colorized lines annotated with the caller location.
type Logger struct {
	name      string
	out       io.Writer
	callDepth int
}

var (
	level     atomic.Int32
	debugMode atomic.Bool

	magenta = string([]byte{27, 91, 57, 53, 109}) // Trace
	green   = string([]byte{27, 91, 57, 50, 109}) // Debug
	blue    = string([]byte{27, 91, 57, 52, 109}) // Info
	yellow  = string([]byte{27, 91, 57, 51, 109}) // Warn
	red     = string([]byte{27, 91, 57, 49, 109}) // Error
	reset   = string([]byte{27, 91, 48, 109})

	colors = []string{
		magenta,
		green,
		blue,
		yellow,
		red,
	}

	levelName = []string{
		"Trace",
		"Debug",
		"Info",
		"Warn",
		"Error",
	}
)

func init() {
	level.Store(LevelWarn)
	if v := os.Getenv("MMIO_LOG_LEVEL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= LevelTrace && n <= LevelNoPrint {
			level.Store(int32(n))
		}
	}

	if os.Getenv("MMIO_DEBUG_MODE") != "" {
		debugMode.Store(true)
	}
}

// SetLevel changes the level of every logger. The default level is Warn and
// can also be set through the MMIO_LOG_LEVEL environment variable.
func SetLevel(l int) {
	if l >= LevelTrace && l <= LevelNoPrint {
		level.Store(int32(l))
	}
}

// Level returns the current log level.
func Level() int {
	return int(level.Load())
}

// DebugMode reports whether per-event detail should be logged. It is set by
// the MMIO_DEBUG_MODE environment variable or SetDebugMode.
func DebugMode() bool {
	return debugMode.Load()
}

// SetDebugMode turns per-event detail on or off.
func SetDebugMode(on bool) {
	debugMode.Store(on)
}

// New returns a logger tagged with name. A nil out writes to stdout.
func New(name string, out io.Writer) *Logger {
	if out == nil {
		out = os.Stdout
	}
	return &Logger{
		name:      name,
		out:       out,
		callDepth: 2,
	}
}

func (l *Logger) Errorf(format string, a ...interface{}) {
	l.printf(LevelError, format, a...)
}

func (l *Logger) Warnf(format string, a ...interface{}) {
	l.printf(LevelWarn, format, a...)
}

func (l *Logger) Infof(format string, a ...interface{}) {
	l.printf(LevelInfo, format, a...)
}

func (l *Logger) Debugf(format string, a ...interface{}) {
	l.printf(LevelDebug, format, a...)
}

func (l *Logger) Tracef(format string, a ...interface{}) {
	l.printf(LevelTrace, format, a...)
}

func (l *Logger) printf(lv int, format string, a ...interface{}) {
	if Level() > lv {
		return
	}
	if _, err := fmt.Fprintf(l.out, l.prefix(lv)+format+reset+"\n", a...); err != nil {
		fmt.Fprintf(os.Stderr, "logger write failed: %v\n", err)
	}
}

func (l *Logger) prefix(lv int) string {
	var buffer [64]byte
	buf := bytes.NewBuffer(buffer[:0])
	_, _ = buf.WriteString(colors[lv])
	_, _ = buf.WriteString(levelName[lv])
	_ = buf.WriteByte(' ')
	_, _ = buf.WriteString(time.Now().Format("2006-01-02 15:04:05.999999"))
	_ = buf.WriteByte(' ')
	_, _ = buf.WriteString(l.location())
	_ = buf.WriteByte(' ')
	if l.name != "" {
		_, _ = buf.WriteString(l.name)
		_ = buf.WriteByte(' ')
	}
	return buf.String()
}

// location skips printf and the exported level method.
func (l *Logger) location() string {
	_, file, line, ok := runtime.Caller(l.callDepth + 2)
	if !ok {
		file = "???"
		line = 0
	}
	file = filepath.Base(file)
	return file + ":" + strconv.Itoa(line)
}
