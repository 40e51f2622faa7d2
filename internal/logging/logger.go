/*
Copyright © 2025 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package logging ports the teacher's pterm-backed Logger to the build
// driver: leveled console output plus a Diagnostic sink that renders a
// diag.Diagnostic's path:line:col the way spec §7 describes.
package logging

import (
	"fmt"
	"sync"

	"github.com/pterm/pterm"

	"bennypowers.dev/mako/diag"
)

func init() {
	pterm.Info = *pterm.Info.WithPrefix(pterm.Prefix{
		Text:  "INFO",
		Style: pterm.NewStyle(pterm.FgBlue),
	}).WithMessageStyle(&pterm.ThemeDefault.DefaultText)

	pterm.Success = *pterm.Success.WithPrefix(pterm.Prefix{
		Text:  "SUCCESS",
		Style: pterm.NewStyle(pterm.FgGreen),
	}).WithMessageStyle(&pterm.ThemeDefault.DefaultText)

	pterm.Warning = *pterm.Warning.WithPrefix(pterm.Prefix{
		Text:  "WARNING",
		Style: pterm.NewStyle(pterm.FgYellow),
	}).WithMessageStyle(&pterm.ThemeDefault.DefaultText)

	pterm.Error = *pterm.Error.WithPrefix(pterm.Prefix{
		Text:  "ERROR",
		Style: pterm.NewStyle(pterm.FgRed),
	}).WithMessageStyle(&pterm.ThemeDefault.DefaultText)

	pterm.Debug = *pterm.Debug.WithPrefix(pterm.Prefix{
		Text:  "DEBUG",
		Style: pterm.NewStyle(pterm.FgCyan),
	}).WithMessageStyle(&pterm.ThemeDefault.DefaultText)
}

// LogLevel represents the severity level of a log message.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarning
	LogLevelError
)

func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarning:
		return "WARNING"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger is a pterm-backed leveled logger shared by the build driver, the
// chunk emitter, and the HMR hub.
type Logger struct {
	mu           sync.RWMutex
	debugEnabled bool
	quietEnabled bool
}

var globalLogger = &Logger{}

// GetLogger returns the global logger instance.
func GetLogger() *Logger { return globalLogger }

func (l *Logger) SetDebugEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debugEnabled = enabled
}

func (l *Logger) IsDebugEnabled() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.debugEnabled
}

func (l *Logger) SetQuietEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.quietEnabled = enabled
}

func (l *Logger) IsQuietEnabled() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.quietEnabled
}

func (l *Logger) Debug(format string, args ...any)   { l.log(LogLevelDebug, format, args...) }
func (l *Logger) Info(format string, args ...any)    { l.log(LogLevelInfo, format, args...) }
func (l *Logger) Warning(format string, args ...any) { l.log(LogLevelWarning, format, args...) }
func (l *Logger) Error(format string, args ...any)   { l.log(LogLevelError, format, args...) }

// Success logs a success message; suppressed in quiet mode, same as Info.
func (l *Logger) Success(format string, args ...any) {
	l.mu.RLock()
	quiet := l.quietEnabled
	l.mu.RUnlock()
	if quiet {
		return
	}
	pterm.Success.Printf(format+"\n", args...)
}

func (l *Logger) log(level LogLevel, format string, args ...any) {
	l.mu.RLock()
	debugEnabled := l.debugEnabled
	quietEnabled := l.quietEnabled
	l.mu.RUnlock()

	if level == LogLevelDebug && !debugEnabled {
		return
	}
	if quietEnabled && (level == LogLevelInfo || level == LogLevelDebug) {
		return
	}

	message := fmt.Sprintf(format, args...)
	switch level {
	case LogLevelDebug:
		pterm.Debug.Println(message)
	case LogLevelInfo:
		pterm.Info.Println(message)
	case LogLevelWarning:
		pterm.Warning.Println(message)
	case LogLevelError:
		pterm.Error.Println(message)
	}
}

// Diagnostic renders a diag.Diagnostic the way spec §7 "User-visible
// behavior" describes: path, optional line/column, severity, reason.
// Warnings print via pterm.Warning and never affect IsQuietEnabled's
// suppression of plain Info/Debug noise — a build with warnings still
// reports them.
func (l *Logger) Diagnostic(d diag.Diagnostic) {
	msg := formatDiagnostic(d)
	if d.Severity == diag.Error {
		pterm.Error.Println(msg)
	} else {
		pterm.Warning.Println(msg)
	}
}

func formatDiagnostic(d diag.Diagnostic) string {
	if d.Start != nil {
		return fmt.Sprintf("%s:%d:%d [%s] %s", d.Path, d.Start.Line, d.Start.Column, d.Kind, d.Reason)
	}
	return fmt.Sprintf("%s [%s] %s", d.Path, d.Kind, d.Reason)
}

// Convenience functions for the global logger.
func Debug(format string, args ...any)             { globalLogger.Debug(format, args...) }
func Info(format string, args ...any)               { globalLogger.Info(format, args...) }
func Warning(format string, args ...any)            { globalLogger.Warning(format, args...) }
func Error(format string, args ...any)              { globalLogger.Error(format, args...) }
func Success(format string, args ...any)            { globalLogger.Success(format, args...) }
func DiagnosticMsg(d diag.Diagnostic)               { globalLogger.Diagnostic(d) }
func SetDebugEnabled(enabled bool)                  { globalLogger.SetDebugEnabled(enabled) }
func IsDebugEnabled() bool                          { return globalLogger.IsDebugEnabled() }
func SetQuietEnabled(enabled bool)                  { globalLogger.SetQuietEnabled(enabled) }
func IsQuietEnabled() bool                          { return globalLogger.IsQuietEnabled() }
