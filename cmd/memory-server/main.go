package main

import (
	"os"

	"github.com/remindly/remindly-server/memoryserver"
)

func main() {
	if err := memoryserver.Run(); err != nil {
		os.Exit(1)
	}
}
