package main

import "github.com/workstream/access-management/cmd"

func main() {
	cmd.Execute()
}
