package main

import "github.com/abdhe/game-catalog-proxy/cmd"

func main() {
	cmd.Execute()
}
