package main

import "github.com/yourname/daybar/internal/cli"

func main() {
	cli.Execute()
}
