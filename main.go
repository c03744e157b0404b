// The main package for the page-archiver executable.
package main

import (
	"github.com/JakeFAU/page-archiver/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
