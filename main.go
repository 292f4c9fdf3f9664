package main

import "github.com/mabhi256/munin-jmx/cmd"

func main() {
	cmd.Execute()
}
