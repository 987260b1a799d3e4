// The main package for the frontier executable.
package main

import (
	"github.com/frontier-crawler/frontier/cmd"
)

func main() {
	cmd.Execute()
}
