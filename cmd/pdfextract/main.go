package main

import (
	"fmt"
	"os"

	"guideline-extractor/cmd/pdfextract/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, commands.Message(err))
		os.Exit(1)
	}
}
