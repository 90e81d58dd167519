package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/nlquery/analyst/cmd"
	"github.com/nlquery/analyst/internal/errors"
)

func main() {
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		printError(err)
		os.Exit(1)
	}
}

func printError(err error) {
	var appErr *errors.Error
	if errors.As(err, &appErr) {
		fmt.Fprintf(os.Stderr, "Error: %s\n", appErr.Message)

		for _, s := range appErr.Suggestions {
			fmt.Fprintf(os.Stderr, "  - %s\n", s)
		}

		return
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}
