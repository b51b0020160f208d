package main

import (
	"github.com/trawler-io/trawler/cmd"
)

func main() {
	cmd.Execute()
}
