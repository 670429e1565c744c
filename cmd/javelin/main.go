package main

import "github.com/oshokin/javelin/cmd/javelin/cmd"

func main() {
	cmd.Execute()
}
