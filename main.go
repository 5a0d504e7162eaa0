package main

import "github.com/praetorian-inc/msinfo/cmd"

func main() {
	cmd.Execute()
}
