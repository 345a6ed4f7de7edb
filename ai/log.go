package ai

import "github.com/charmbracelet/log"

var logger = log.WithPrefix("ai")

// SetLogger replaces the package logger. A nil logger is ignored.
func SetLogger(l *log.Logger) {
	if l == nil {
		return
	}
	logger = l
}
