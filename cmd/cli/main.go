package main

import "github.com/akarper/keydist/pkg/cli"

func main() {
	cli.Execute()
}
