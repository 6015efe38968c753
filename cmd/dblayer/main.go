package main

import "github.com/ridoystarlord/dblayer/cmd"

func main() {
	cmd.Execute()
}
