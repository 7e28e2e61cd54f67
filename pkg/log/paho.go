package log

import (
	"fmt"
	"strings"
)

// PahoLogger adapts a Logger to the Println/Printf interface the paho
// libraries use for their internal tracing. Every line is emitted at debug
// level through the logr view so it honours the configured verbosity.
type PahoLogger struct {
	prefix string
	logger Logger
}

// NewPahoLogger returns a PahoLogger writing through l, tagging each line with prefix.
func NewPahoLogger(l Logger, prefix string) *PahoLogger {
	if l == nil {
		l = Std()
	}
	return &PahoLogger{prefix: prefix, logger: l}
}

func (p *PahoLogger) Println(v ...any) {
	p.write(strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

func (p *PahoLogger) Printf(format string, v ...any) {
	p.write(strings.TrimSuffix(fmt.Sprintf(format, v...), "\n"))
}

func (p *PahoLogger) write(line string) {
	p.logger.Logr().V(1).Info(line, "source", p.prefix)
}
