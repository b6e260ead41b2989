package main

import "github.com/mcoot/topten/internal/cli"

func main() {
	cli.Execute()
}
