package main

import "smartkb/internal/cli"

func main() {
	cli.Execute()
}
