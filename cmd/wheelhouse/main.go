package main

import "github.com/wheelhouse-project/wheelhouse/internal/cli"

func main() {
	cli.Execute()
}
