package main

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"

	"szurutools/internal/events"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
	ansiBold   = "\x1b[1m"
)

// consoleSink prints one line per event.
type consoleSink struct {
	mu       sync.Mutex
	out      io.Writer
	colorize bool
}

func newConsoleSink(out io.Writer) *consoleSink {
	return &consoleSink{out: out, colorize: shouldColorize(out)}
}

func (s *consoleSink) Emit(evt events.Event) {
	line := renderEventLine(evt)
	if line == "" {
		return
	}
	if s.colorize {
		if color := eventColor(evt.Type); color != "" {
			line = color + line + ansiReset
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.out, line)
}

func renderEventLine(evt events.Event) string {
	switch evt.Type {
	case events.TypeProgress:
		return fmt.Sprintf("[%d/%d] %s", evt.Current, evt.Total, evt.Tag)
	case events.TypeError:
		return "ERROR " + evt.Message
	case events.TypeSuccess:
		return "OK    " + evt.Message
	case events.TypeSummary, events.TypeComplete:
		return evt.Message
	default:
		return "      " + evt.Message
	}
}

func eventColor(t events.Type) string {
	switch t {
	case events.TypeError:
		return ansiRed
	case events.TypeSuccess:
		return ansiGreen
	case events.TypeSummary:
		return ansiYellow
	case events.TypeProgress:
		return ansiBlue
	case events.TypeComplete:
		return ansiBold
	default:
		return ""
	}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
