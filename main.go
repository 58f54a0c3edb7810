package main

import "github.com/dfslabs/dfs/cmd"

func main() {
	cmd.Execute()
}
