package utils

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

const (
	MinPasswordLength = 8
	passwordAttempts  = 3
)

var ErrPasswordPrompt = errors.New("mot de passe non confirmé")

// PasswordReader lit un mot de passe sans écho.
type PasswordReader func() ([]byte, error)

// TerminalPassword lit sur le terminal f (en pratique os.Stdin).
func TerminalPassword(f *os.File) PasswordReader {
	return func() ([]byte, error) {
		return term.ReadPassword(int(f.Fd()))
	}
}

// PromptPasswordTwice demande le mot de passe puis sa confirmation, au plus
// trois fois.
func PromptPasswordTwice(out io.Writer, read PasswordReader) (string, error) {
	for i := 0; i < passwordAttempts; i++ {
		fmt.Fprint(out, "Mot de passe : ")
		pass1, err := read()
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		if len(pass1) < MinPasswordLength {
			fmt.Fprintf(out, "Le mot de passe doit faire au moins %d caractères.\n", MinPasswordLength)
			continue
		}
		fmt.Fprint(out, "Confirmer le mot de passe : ")
		pass2, err := read()
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		if string(pass1) != string(pass2) {
			fmt.Fprintln(out, "Les mots de passe ne correspondent pas.")
			continue
		}
		return string(pass1), nil
	}
	return "", ErrPasswordPrompt
}
