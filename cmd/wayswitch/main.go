package main

import "github.com/wayswitch/wayswitch/cmd/wayswitch/commands"

func main() {
	commands.Execute()
}
