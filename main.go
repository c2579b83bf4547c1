package main

import "github.com/KaramelBytes/enrolytics-cli/cmd"

func main() {
	cmd.Execute()
}
