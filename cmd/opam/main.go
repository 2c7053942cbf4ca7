package main

import (
	"github.com/silene/opam/cmd/opam/cmd"
)

func main() {
	cmd.Execute()
}
