package main

import (
	"log"
	"os"

	"trivia-quiz/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Printf("ERROR: %v", err)
		os.Exit(1)
	}
}
