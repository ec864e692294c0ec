package main

import "github.com/Tigran0000/inveni/cli"

func main() {
	cli.Execute()
}
