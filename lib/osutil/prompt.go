package osutil

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

var ErrNotInteractive = errors.New("stdin is not a terminal")

// Prompter asks the user for credentials. Passwords are read without echo.
type Prompter struct {
	In  *os.File
	Out io.Writer
}

func NewPrompter() Prompter {
	return Prompter{In: os.Stdin, Out: os.Stderr}
}

// Credentials asks for whatever of username and password is empty. It fails
// with ErrNotInteractive when something is missing and In is not a terminal.
func (p Prompter) Credentials(ctx context.Context, username, password string) (string, string, error) {
	if username != "" && password != "" {
		return username, password, nil
	}
	if !term.IsTerminal(int(p.In.Fd())) {
		return "", "", ErrNotInteractive
	}

	type answer struct {
		username string
		password string
		err      error
	}
	done := make(chan answer, 1)
	go func() {
		var a answer
		a.username, a.password, a.err = p.read(username, password)
		done <- a
	}()

	select {
	case <-ctx.Done():
		return "", "", ctx.Err()
	case a := <-done:
		return a.username, a.password, a.err
	}
}

func (p Prompter) read(username, password string) (string, string, error) {
	if username == "" {
		fmt.Fprint(p.Out, "Username: ")
		line, err := bufio.NewReader(p.In).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", "", err
		}
		username = strings.TrimSpace(line)
	}
	if password == "" {
		fmt.Fprint(p.Out, "Password: ")
		raw, err := term.ReadPassword(int(p.In.Fd()))
		fmt.Fprintln(p.Out)
		if err != nil {
			return "", "", err
		}
		password = string(raw)
	}
	return username, password, nil
}
