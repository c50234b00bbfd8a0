package main

import "github.com/MeKo-Tech/readout/cmd/readout/cmd"

func main() {
	cmd.Execute()
}
