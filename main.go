package main

import "github.com/nikogura/resume-ai/cmd"

func main() {
	cmd.Execute()
}
