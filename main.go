package main

import "github.com/postmk-build/postmk/cmd"

func main() {
	cmd.Execute()
}
