package main

import "engagement-engine/internal/cli"

func main() {
	cli.Execute()
}
