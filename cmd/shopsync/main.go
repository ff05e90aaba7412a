package main

import (
	"context"
	"fmt"
	"os"

	"shopdesk/internal/cli"

	"github.com/joho/godotenv"
)

func main() {
	// optional local settings
	_ = godotenv.Load("configs/.env")

	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
