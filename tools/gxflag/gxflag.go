// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package gxflag provides flag types for tilegrad tools.
package gxflag

import (
	"flag"
	"log/slog"
	"strings"

	"github.com/gx-org/tilegrad/base/logutil"
	"github.com/pkg/errors"
)

type stringList struct {
	list *[]string
}

func (sl *stringList) String() string {
	if sl.list == nil {
		return ""
	}
	return strings.Join(*sl.list, ",")
}

func (sl *stringList) Set(values string) error {
	for _, value := range strings.Split(values, ",") {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		*sl.list = append(*sl.list, value)
	}
	return nil
}

// StringListVar defines a flag in a set to pass a comma separated list of strings.
func StringListVar(fs *flag.FlagSet, name, doc string) *[]string {
	var list []string
	fs.Var(&stringList{&list}, name, doc)
	return &list
}

// StringList returns a flag to pass a list of string from the command line.
func StringList(name, doc string) *[]string {
	return StringListVar(flag.CommandLine, name, doc)
}

var levels = map[string]slog.Level{
	"trace": logutil.LevelTrace,
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

type logLevel struct {
	level *slog.Level
}

func (l *logLevel) String() string {
	if l.level == nil {
		return ""
	}
	for name, level := range levels {
		if level == *l.level {
			return name
		}
	}
	return l.level.String()
}

func (l *logLevel) Set(value string) error {
	level, ok := levels[strings.ToLower(strings.TrimSpace(value))]
	if !ok {
		return errors.Errorf("unknown log level %q: want one of trace, debug, info, warn, error", value)
	}
	*l.level = level
	return nil
}

// LogLevelVar defines a flag in a set to choose a logging level by name.
func LogLevelVar(fs *flag.FlagSet, name string, value slog.Level, doc string) *slog.Level {
	level := value
	fs.Var(&logLevel{&level}, name, doc)
	return &level
}

// LogLevel returns a flag to choose a logging level from the command line.
func LogLevel(name string, value slog.Level, doc string) *slog.Level {
	return LogLevelVar(flag.CommandLine, name, value, doc)
}
