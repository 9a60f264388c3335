package main

import (
	"basket/pkg/cli"
)

func main() {
	cli.Execute()
}
