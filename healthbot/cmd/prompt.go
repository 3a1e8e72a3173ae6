package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// clearValue typed at an edit prompt empties the field.
const clearValue = "-"

type prompter struct {
	mu     sync.Mutex
	in     io.Reader
	reader *bufio.Reader
	out    io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: in, reader: bufio.NewReader(in), out: out}
}

// Line reads one line. io.EOF is returned only when nothing was typed.
func (p *prompter) Line(label string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if label != "" {
		fmt.Fprint(p.out, label)
	}
	return p.readLine()
}

func (p *prompter) readLine() (string, error) {
	line, err := p.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Required keeps asking until something non-blank is typed.
func (p *prompter) Required(label string) (string, error) {
	for {
		v, err := p.Line(label + ": ")
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(v) != "" {
			return v, nil
		}
		fmt.Fprintf(p.out, "%s cannot be empty.\n", label)
	}
}

// Edit shows the current value; Enter keeps it and "-" clears it.
func (p *prompter) Edit(label, current string) (string, error) {
	prompt := label + ": "
	if current != "" {
		prompt = fmt.Sprintf("%s [%s]: ", label, current)
	}
	v, err := p.Line(prompt)
	if err != nil {
		return "", err
	}
	switch strings.TrimSpace(v) {
	case "":
		return current, nil
	case clearValue:
		return "", nil
	}
	return v, nil
}

// Password reads without echo when stdin is a terminal.
func (p *prompter) Password(label string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprint(p.out, label)
	if f, ok := p.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.out)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return p.readLine()
}

// Confirm asks a yes/no question; anything but yes is no.
func (p *prompter) Confirm(message string) bool {
	for {
		v, err := p.Line(message + " [y/N]: ")
		if err != nil {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "y", "yes":
			return true
		case "n", "no", "":
			return false
		default:
			fmt.Fprintln(p.out, "Please enter 'y' or 'n'.")
		}
	}
}
