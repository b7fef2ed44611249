// The main package for the vantageflow executable.
package main

import (
	"github.com/mpop-24/vantageflow/cmd"
)

func main() {
	cmd.Execute()
}
