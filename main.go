package main

import "github.com/tasktrack/apiserver/cmd"

func main() {
	cmd.Execute()
}
