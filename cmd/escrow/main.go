package main

import (
	"github.com/humanprotocol/escrow-server/pkg/cli"
)

func main() {
	cli.Execute()
}
