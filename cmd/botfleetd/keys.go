package main

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/cfxstock/botfleet/internal/vault"
	"golang.org/x/term"
)

func cmdKeys(args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: botfleetd keys <list|set|delete> [proxy|platform]")
		os.Exit(1)
	}

	v := vault.New()

	switch args[0] {
	case "list":
		kinds, err := v.List()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error listing credentials: %v\n", err)
			os.Exit(1)
		}
		if len(kinds) == 0 {
			fmt.Println("No credentials stored")
			return
		}
		for _, k := range kinds {
			fmt.Printf("  %s: ****\n", k)
		}

	case "set":
		if len(args) < 2 {
			fmt.Println("Usage: botfleetd keys set <proxy|platform>")
			os.Exit(1)
		}
		kind := strings.ToLower(args[1])
		fmt.Printf("Enter credential for %s: ", kind)
		secret, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error reading credential: %v\n", err)
			os.Exit(1)
		}
		if err := v.Set(kind, string(secret)); err != nil {
			fmt.Fprintf(os.Stderr, "error storing credential: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Credential for %s stored successfully\n", kind)

	case "delete":
		if len(args) < 2 {
			fmt.Println("Usage: botfleetd keys delete <proxy|platform>")
			os.Exit(1)
		}
		kind := strings.ToLower(args[1])
		if err := v.Delete(kind); err != nil {
			fmt.Fprintf(os.Stderr, "error deleting credential: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Credential for %s deleted\n", kind)

	default:
		fmt.Fprintf(os.Stderr, "unknown keys command: %s\n", args[0])
		os.Exit(1)
	}
}
