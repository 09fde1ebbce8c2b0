package main

import (
	"os"

	"github.com/telhawk-systems/authsim/cmd"
	"github.com/telhawk-systems/authsim/pkg/output"
)

func main() {
	if err := cmd.Execute(); err != nil {
		output.Error("%v", err)
		os.Exit(1)
	}
}
