package main

import "github.com/brainbox-app/brainbox/internal/cli"

func main() {
	cli.Execute()
}
