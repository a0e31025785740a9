package main

import "dbcopy/cmd"

func main() {
	cmd.Execute()
}
