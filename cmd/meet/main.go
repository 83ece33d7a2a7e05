package main

import "github.com/typeless/meet/internal/cli"

func main() {
	cli.Execute()
}
