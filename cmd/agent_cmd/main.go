package main

import "github.com/TEENet-io/xbridge-agents/cmd"

func main() {
	cmd.Execute()
}
