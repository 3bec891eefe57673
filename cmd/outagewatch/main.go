package main

import "outagewatch/internal/cli"

func main() {
	cli.Execute()
}
