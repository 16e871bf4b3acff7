package main

import "github.com/objdiffgo/objdiff/cmd"

func main() {
	cmd.Execute()
}
