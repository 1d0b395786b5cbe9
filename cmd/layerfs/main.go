package main

import "github.com/aweris/layerfs/cmd/layerfs/cmd"

func main() {
	cmd.Execute()
}
