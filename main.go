package main

import "github.com/ralphcore/ralph/cmd"

func main() {
	cmd.Execute()
}
