// Command hash-password prints a bcrypt hash suitable for users.password_hash,
// for seeding accounts or resetting one by hand.
package main

import (
	"fmt"
	"os"

	"github.com/tokenmeter/tokenmeter-api/internal/util"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: go run scripts/hash-password.go <password>\n")
		os.Exit(1)
	}

	password := os.Args[1]
	if len(password) < 8 {
		fmt.Fprintf(os.Stderr, "Error: password must be at least 8 characters\n")
		os.Exit(1)
	}

	hash, err := util.HashPassword(password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(hash)
}
