package main

import (
	"os"

	"github.com/oleg578/csvcodec/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
