package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"calboard/internal/web"
)

// hashPassword implements `calboard hash-password`: it prompts for a
// password and prints the argon2id hash to paste into basic_auth.password.
func hashPassword(args []string) int {
	fs := flag.NewFlagSet("hash-password", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: calboard hash-password\n\n")
		fmt.Fprintf(os.Stderr, "Prints an argon2id hash for basic_auth.password in config.yaml.\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)

	password, err := readSecret("Enter password:   ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading password: %v\n", err)
		return 1
	}
	confirm, err := readSecret("Confirm password: ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading password: %v\n", err)
		return 1
	}

	if password == "" {
		fmt.Fprintln(os.Stderr, "Password cannot be empty")
		return 1
	}
	if password != confirm {
		fmt.Fprintln(os.Stderr, "Passwords do not match")
		return 1
	}

	hash, err := web.HashPassword(password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Println(hash)
	return 0
}

// readSecret reads a line without echo when stdin is a terminal, and a
// plain line otherwise (so the command also works in pipelines).
func readSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, prompt)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		return string(b), err
	}

	line, err := stdin.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

var stdin = bufio.NewReader(os.Stdin)
