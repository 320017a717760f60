package main

import (
	"os"

	"github.com/authchain/authchain/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
