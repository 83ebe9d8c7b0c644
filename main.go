package main

import "github.com/KaramelBytes/docassist/cmd"

func main() {
	cmd.Execute()
}
