package main

import (
	"fmt"
	"os"

	"github.com/xyz-asif/chatter/internal/command"
)

func main() {
	if err := command.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
