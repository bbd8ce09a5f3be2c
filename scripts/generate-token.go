package main

import (
	"fmt"
	"os"

	"github.com/pausely/pause-server-go/internal/util"
)

// Mints an API token for a new user. The token goes to the user; the hash
// goes into users.api_token_hash.
func main() {
	token, err := util.GenerateToken()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("token: %s\n", token)
	fmt.Printf("hash:  %s\n", util.HashToken(token))
}
