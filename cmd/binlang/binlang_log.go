// Copyright (c) 2024 The binlang Authors
//
// Permission to use, copy, modify, and/or distribute this software for any
// purpose with or without fee is hereby granted.
//
// THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH
// REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY
// AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT,
// INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM
// LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR
// OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR
// PERFORMANCE OF THIS SOFTWARE.
//
// SPDX-License-Identifier: 0BSD

package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/lmittmann/tint"
)

const (
	logEnv = "BINLANG_LOG"

	// Above every level slog defines.
	levelSilent = slog.Level(100)
)

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	case "silent", "off", "none":
		return levelSilent, nil
	}
	return 0, fmt.Errorf("%w: unknown log level %q", errUsage, s)
}

func (c *cli) newLogger() (*slog.Logger, error) {
	levelText := c.logLevel
	if levelText == "" {
		levelText = c.getenv(logEnv)
	}
	level, err := parseLogLevel(levelText)
	if err != nil {
		return nil, err
	}
	if c.getenv("NO_COLOR") != "" {
		color.NoColor = true
	}

	switch c.logFormat {
	case "", "text":
		return newHumanLogger(c.stderr, level), nil
	case "json":
		return slog.New(slog.NewJSONHandler(c.stderr, &slog.HandlerOptions{
			Level: level,
		})), nil
	}
	return nil, fmt.Errorf("%w: unknown log format %q", errUsage, c.logFormat)
}

func newHumanLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:       level,
		TimeFormat:  time.TimeOnly,
		NoColor:     color.NoColor,
		ReplaceAttr: colorLevel,
	}))
}

func colorLevel(groups []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey || len(groups) > 0 {
		return a
	}
	level, ok := a.Value.Any().(slog.Level)
	if !ok {
		return a
	}
	var text string
	switch level {
	case slog.LevelDebug:
		text = "DBG"
	case slog.LevelInfo:
		text = color.GreenString("INF")
	case slog.LevelWarn:
		text = color.YellowString("WRN")
	case slog.LevelError:
		text = color.RedString("ERR")
	default:
		text = level.String()
	}
	a.Value = slog.StringValue(text)
	return a
}
