package main

import (
	"os"

	"github.com/Skotchmaster/storefront/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
