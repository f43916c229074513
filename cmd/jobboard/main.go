package main

import "github.com/jmcleod/jobboard/cmd/jobboard/cmd"

func main() {
	cmd.Execute()
}
