package main

import "github.com/notargets/gofvm/cmd"

func main() {
	cmd.Execute()
}
