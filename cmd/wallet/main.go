package main

import "wallet/internal/cli"

func main() {
	cli.Execute()
}
