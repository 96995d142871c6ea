package main

import "github.com/nkls/go-polytope-sampler/cmd"

func main() {
	cmd.Execute()
}
