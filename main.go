package main

import "github.com/Digital-Shane/episode-renamer/internal/cmd"

func main() {
	cmd.Execute()
}
