package main

import "healthbot/healthbot/cmd"

func main() {
	cmd.Execute()
}
