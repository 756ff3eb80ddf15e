package common

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Prompter reads menu choices, one number per line.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// ReadIndex prints msg and reads a 1-based index in [1, n].
func (p *Prompter) ReadIndex(msg string, n int) (int, error) {
	fmt.Fprintln(p.out, msg)
	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return 0, fmt.Errorf("failed to read input: %w", err)
	}
	choice, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidChoice, strings.TrimSpace(line))
	}
	return choice, CheckIndex(choice, n)
}

// CheckIndex rejects a 1-based index outside [1, n].
func CheckIndex(choice, n int) error {
	if choice < 1 || choice > n {
		return fmt.Errorf("%w: choose a number from 1 to %d, got %d", ErrInvalidChoice, n, choice)
	}
	return nil
}
