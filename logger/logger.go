// Copyright 2017-2024 Lei Ni (nilei81@gmail.com) and other contributors.
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

/*
Package logger manages loggers used in iobench.
*/
package logger

import (
	"sync"
)

// LogLevel is the log level defined in iobench.
type LogLevel int

const (
	// CRITICAL is the CRITICAL log level
	CRITICAL LogLevel = iota - 1
	// ERROR is the ERROR log level
	ERROR
	// WARNING is the WARNING log level
	WARNING
	// INFO is the INFO log level
	INFO
	// DEBUG is the DEBUG log level
	DEBUG
)

// Factory is the factory method for creating logger used for the
// specified package.
type Factory func(pkgName string) ILogger

// ILogger is the interface implemented by loggers that can be used by
// iobench. Wrap your favourite logging library in a struct implementing
// ILogger and install it with SetLoggerFactory to redirect all output.
type ILogger interface {
	SetLevel(LogLevel)
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Panicf(format string, args ...interface{})
}

// SetLoggerFactory sets the factory function used to create ILogger instances.
// It must be called before the first log line is written by any package.
func SetLoggerFactory(f Factory) {
	_loggers.mu.Lock()
	defer _loggers.mu.Unlock()
	if _loggers.loggerFactory != nil {
		panic("setting the logger factory again")
	}
	_loggers.loggerFactory = f
}

// GetLogger returns the logger for the specified package name. The most common
// use case for the returned logger is to set its log verbosity level.
func GetLogger(pkgName string) ILogger {
	_loggers.mu.Lock()
	defer _loggers.mu.Unlock()
	l, ok := _loggers.loggers[pkgName]
	if !ok {
		l = &benchLogger{pkgName: pkgName}
		_loggers.loggers[pkgName] = l
	}
	return l
}

// SetLevel sets the log level of all loggers obtained so far and of those
// created afterwards.
func SetLevel(level LogLevel) {
	_loggers.mu.Lock()
	_loggers.level = &level
	loggers := make([]*benchLogger, 0, len(_loggers.loggers))
	for _, l := range _loggers.loggers {
		loggers = append(loggers, l)
	}
	_loggers.mu.Unlock()
	for _, l := range loggers {
		l.SetLevel(level)
	}
}

type benchLogger struct {
	mu      sync.Mutex
	logger  ILogger
	pkgName string
}

func (d *benchLogger) getILogger() ILogger {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.logger == nil {
		d.logger = _loggers.createILogger(d.pkgName)
	}
	return d.logger
}

func (d *benchLogger) SetLevel(l LogLevel) {
	d.getILogger().SetLevel(l)
}

func (d *benchLogger) Debugf(format string, args ...interface{}) {
	d.getILogger().Debugf(format, args...)
}

func (d *benchLogger) Infof(format string, args ...interface{}) {
	d.getILogger().Infof(format, args...)
}

func (d *benchLogger) Warningf(format string, args ...interface{}) {
	d.getILogger().Warningf(format, args...)
}

func (d *benchLogger) Errorf(format string, args ...interface{}) {
	d.getILogger().Errorf(format, args...)
}

func (d *benchLogger) Panicf(format string, args ...interface{}) {
	d.getILogger().Panicf(format, args...)
}

type sysLoggers struct {
	mu            sync.Mutex
	loggers       map[string]*benchLogger
	loggerFactory Factory
	level         *LogLevel
}

func (l *sysLoggers) createILogger(pkgName string) ILogger {
	l.mu.Lock()
	defer l.mu.Unlock()
	var il ILogger
	if l.loggerFactory == nil {
		il = createDefaultILogger(pkgName)
	} else {
		il = l.loggerFactory(pkgName)
	}
	if l.level != nil {
		il.SetLevel(*l.level)
	}
	return il
}

var _loggers = createSysLoggers()

func createSysLoggers() *sysLoggers {
	s := &sysLoggers{
		loggers: make(map[string]*benchLogger),
	}
	return s
}

func createDefaultILogger(pkgName string) ILogger {
	return CreateCapnsLog(pkgName)
}
