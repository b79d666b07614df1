package main

import "github.com/kozaktomas/sign-vision/cmd"

func main() {
	cmd.Execute()
}
