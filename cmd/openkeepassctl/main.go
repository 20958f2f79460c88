// Command openkeepassctl opens a KDBX v2 database and lists its
// entries, or verifies that a password unlocks it.
package main

import (
	"flag"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/packetops/openkeepass"
)

func main() {
	verifyOnly := flag.Bool("verify", false, "only check that the password opens the file and print \"ok\"")
	keyFilePath := flag.String("keyfile", "", "path to a key file")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: openkeepassctl [-verify] [-keyfile PATH] DATABASE.kdbx")
		os.Exit(2)
	}

	if err := run(flag.Arg(0), *keyFilePath, *verifyOnly); err != nil {
		fmt.Fprintln(os.Stderr, "openkeepassctl:", err)
		os.Exit(1)
	}
}

func run(path, keyFilePath string, verifyOnly bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	opts := []openkeepass.OpenOption{}

	if keyFilePath != "" {
		keyData, err := os.ReadFile(keyFilePath)
		if err != nil {
			return err
		}
		opts = append(opts, openkeepass.WithKeyFile(keyData))
	}

	password, err := readPassword()
	if err != nil {
		return err
	}
	if password != "" {
		opts = append(opts, openkeepass.WithPassword(password))
	}

	doc, err := openkeepass.Open(data, opts...)
	if err != nil {
		return err
	}

	if verifyOnly {
		fmt.Println("ok")
		return nil
	}

	printGroup(&doc.Root, 0)
	return nil
}

func readPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Password: ")
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

func printGroup(g *openkeepass.Group, depth int) {
	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}
	fmt.Printf("%s%s/\n", indent, g.Name)
	for i := range g.Entries {
		e := &g.Entries[i]
		fmt.Printf("%s  %s\n", indent, e.Strings["Title"].Text)
	}
	for i := range g.Groups {
		printGroup(&g.Groups[i], depth+1)
	}
}
