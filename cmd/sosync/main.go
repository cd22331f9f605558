package main

import "github.com/islamsaadi/SOSync/cmd/sosync/cmd"

func main() {
	cmd.Execute()
}
