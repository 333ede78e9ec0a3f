package main

import "github.com/abennata/incmerge/cmd"

func main() {
	cmd.Execute()
}
