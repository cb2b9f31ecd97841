package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/nalsan/peka/krypto"
)

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// promptSecret reads one secret. On a terminal the input is not echoed;
// otherwise the next line of stdin is used, which keeps scripts and tests
// working.
func (a *app) promptSecret(prompt string) ([]byte, error) {
	fmt.Fprint(a.stderr, prompt)
	if a.stdinIsTerminal() {
		pw, err := term.ReadPassword(int(a.stdin.(*os.File).Fd()))
		fmt.Fprintln(a.stderr)
		if err != nil {
			return nil, fmt.Errorf("read secret: %w", err)
		}
		return pw, nil
	}

	line, err := a.readLine()
	fmt.Fprintln(a.stderr)
	if err != nil {
		return nil, err
	}
	return []byte(line), nil
}

// promptNewSecret asks twice and insists both entries match.
func (a *app) promptNewSecret(prompt, confirm string) ([]byte, error) {
	first, err := a.promptSecret(prompt)
	if err != nil {
		return nil, err
	}
	second, err := a.promptSecret(confirm)
	if err != nil {
		krypto.Wipe(first)
		return nil, err
	}
	defer krypto.Wipe(second)

	if !bytes.Equal(first, second) {
		krypto.Wipe(first)
		return nil, userError{msg: "entries do not match"}
	}
	return first, nil
}

// promptLine reads one visible line.
func (a *app) promptLine(prompt string) (string, error) {
	fmt.Fprint(a.stderr, prompt)
	return a.readLine()
}

func (a *app) readLine() (string, error) {
	line, err := a.lines.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", userError{msg: "no input provided"}
		}
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// masterPassword prompts for the master password of an existing vault.
func (a *app) masterPassword() (string, error) {
	pw, err := a.promptSecret("Master password: ")
	if err != nil {
		return "", err
	}
	defer krypto.Wipe(pw)
	return string(pw), nil
}
