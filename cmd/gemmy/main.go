// Command gemmy is a terminal chat client for the Gemini API.
package main

import "github.com/diogo/gemmy/internal/commands"

func main() {
	commands.Execute()
}
