package main

import "github.com/artlinkhq/artlink_backend/cmd"

func main() {
	cmd.Execute()
}
