package main

import (
	"os"
)

func main() {
	if err := CmdPool.Execute(); err != nil {
		os.Exit(1)
	}
}
