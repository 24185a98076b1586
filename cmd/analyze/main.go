package main

import (
	"os"

	"github.com/okian/leakscan/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
