package main

import (
	"github.com/rubenm/goecu/cmd/goecu/cmd"
)

func main() {
	cmd.Execute()
}
