package main

import "github.com/Justype/quickslurm/cmd"

func main() {
	cmd.Execute()
}
