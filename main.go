package main

import "github.com/productivity-nox/noxstat/cmd"

func main() {
	cmd.Execute()
}
