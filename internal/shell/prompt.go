package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/BuzzLyutic/taskboard/internal/i18n"
	"github.com/BuzzLyutic/taskboard/internal/tasklist"
)

// Prompter reads answers and commands line by line from one input. It is the
// shell's tasklist.Confirmer.
type Prompter struct {
	mu        sync.Mutex
	in        *bufio.Reader
	out       io.Writer
	msgs      i18n.Catalog
	assumeYes bool
}

var _ tasklist.Confirmer = (*Prompter)(nil)

func NewPrompter(in io.Reader, out io.Writer, msgs i18n.Catalog, assumeYes bool) *Prompter {
	return &Prompter{
		in:        bufio.NewReader(in),
		out:       out,
		msgs:      msgs,
		assumeYes: assumeYes,
	}
}

// ReadLine returns the next line without its line ending. io.EOF is returned
// only when no characters were read.
func (p *Prompter) ReadLine() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.readLine()
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Confirm asks message with a y/N suffix. Anything but an explicit yes is a
// no, including end of input.
func (p *Prompter) Confirm(ctx context.Context, message string) (bool, error) {
	if p.assumeYes {
		return true, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.out, "%s %s ", message, p.msgs.YesNo)
	answer, err := p.readLine()
	if errors.Is(err, io.EOF) {
		fmt.Fprintln(p.out)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes", "s", "si", "sí":
		return true, nil
	default:
		return false, nil
	}
}
