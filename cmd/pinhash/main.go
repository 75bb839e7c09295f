// Package main provides the PIN hashing tool.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/osa030/durga/internal/domain/challenge"
)

var (
	app  = kingpin.New("durga-pinhash", "Hash a disarm PIN for the durga server config")
	pin  = app.Arg("pin", "4-digit PIN (prompted when omitted)").String()
	cost = app.Flag("cost", "bcrypt cost").Default(fmt.Sprint(bcrypt.DefaultCost)).Int()
)

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	code := *pin
	if code == "" {
		var err error
		code, err = prompt()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	}

	hash, err := challenge.HashPIN(code, *cost)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(hash)
	fmt.Fprintln(os.Stderr, "\nAdd this to your config:")
	fmt.Fprintf(os.Stderr, "  emergency:\n    pin_hash: %q\n", hash)
	fmt.Fprintf(os.Stderr, "or set DURGA_PIN_HASH='%s'\n", hash)
}

// prompt reads the PIN twice without echo.
func prompt() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no PIN given and stdin is not a terminal")
	}

	fmt.Fprint(os.Stderr, "PIN: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	fmt.Fprint(os.Stderr, "Repeat PIN: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(string(first)) != strings.TrimSpace(string(second)) {
		return "", fmt.Errorf("PINs do not match")
	}
	return strings.TrimSpace(string(first)), nil
}
