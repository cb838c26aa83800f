package main

import "github.com/ruleforge/detval/cmd"

func main() {
	cmd.Execute()
}
