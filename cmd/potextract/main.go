package main

import "potextract/internal/cli"

func main() {
	cli.Execute()
}
