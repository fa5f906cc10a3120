package main

import "github.com/naka-gawa/pepy-stats/cmd"

func main() {
	cmd.Execute()
}
