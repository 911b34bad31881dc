// Command hash-generator prints the bcrypt hash for a password, for use
// as MNEMO_AUTH_PASSWORD_HASH when provisioning a sync server account.
package main

import (
	"fmt"
	"os"

	"github.com/mnemohq/mnemo/internal/auth"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: hash-generator <password>")
		os.Exit(2)
	}

	hash, err := auth.HashPassword(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash-generator: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}
