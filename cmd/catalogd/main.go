package main

import "github.com/MrEthical07/goCatalog/cmd/catalogd/cmd"

func main() {
	cmd.Execute()
}
