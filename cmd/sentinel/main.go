package main

import (
	"os"

	"ridge.run/sentinel/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
