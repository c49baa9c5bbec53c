package console

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"
	"github.com/rs/zerolog"
)

// LineReader supplies the REPL with input.
type LineReader interface {
	Prompt(prompt string) (string, error)
	// PasswordPrompt reads a line without echoing it where the input allows.
	PasswordPrompt(prompt string) (string, error)
	Close() error
}

var (
	_ LineReader = (*Terminal)(nil)
	_ LineReader = (*Lines)(nil)
)

// NewInput picks line editing for an interactive terminal and plain line
// reading for piped input.
func NewInput(in *os.File, out io.Writer, historyFile string, logger *zerolog.Logger) LineReader {
	fd := in.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return NewTerminal(historyFile, logger)
	}
	return NewLines(in, out)
}

// Terminal reads lines with editing, history and Ctrl-C handling.
type Terminal struct {
	line        *liner.State
	historyFile string
	log         *zerolog.Logger
}

// NewTerminal takes over the process terminal until Close. An empty
// historyFile keeps history in memory only.
func NewTerminal(historyFile string, logger *zerolog.Logger) *Terminal {
	l := logger.With().Str("component", "console_input").Logger()
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	t := &Terminal{line: line, historyFile: historyFile, log: &l}
	t.loadHistory()
	return t
}

func (t *Terminal) Prompt(prompt string) (string, error) {
	s, err := t.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if keepInHistory(s) {
		t.line.AppendHistory(s)
	}
	return s, nil
}

func (t *Terminal) PasswordPrompt(prompt string) (string, error) {
	return t.line.PasswordPrompt(prompt)
}

// Close writes the history and restores the terminal.
func (t *Terminal) Close() error {
	t.saveHistory()
	return t.line.Close()
}

func (t *Terminal) loadHistory() {
	if t.historyFile == "" {
		return
	}
	f, err := os.Open(t.historyFile)
	if err != nil {
		return
	}
	defer f.Close()
	if _, err := t.line.ReadHistory(f); err != nil {
		t.log.Debug().Err(err).Str("file", t.historyFile).Msg("history not loaded")
	}
}

func (t *Terminal) saveHistory() {
	if t.historyFile == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(t.historyFile), 0o700); err != nil {
		t.log.Debug().Err(err).Msg("history directory")
		return
	}
	f, err := os.OpenFile(t.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		t.log.Debug().Err(err).Msg("history not saved")
		return
	}
	defer f.Close()
	if _, err := t.line.WriteHistory(f); err != nil {
		t.log.Debug().Err(err).Msg("history not saved")
	}
}

// keepInHistory leaves lines carrying credentials out of the history.
func keepInHistory(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && !strings.HasPrefix(strings.ToLower(s), "/google")
}

// Lines reads newline separated input from a pipe or a test. Prompts are
// written to w; nothing is hidden.
type Lines struct {
	sc *bufio.Scanner
	w  io.Writer
}

func NewLines(r io.Reader, w io.Writer) *Lines {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	return &Lines{sc: sc, w: w}
}

func (l *Lines) Prompt(prompt string) (string, error) {
	fmt.Fprint(l.w, prompt)
	if l.sc.Scan() {
		return l.sc.Text(), nil
	}
	if err := l.sc.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (l *Lines) PasswordPrompt(prompt string) (string, error) { return l.Prompt(prompt) }

func (l *Lines) Close() error { return nil }
