package main

import "facetrack/internal/cli"

func main() {
	cli.Execute()
}
