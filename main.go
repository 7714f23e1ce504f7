package main

import "tool_lending_tracker/cli"

func main() {
	cli.Execute()
}
