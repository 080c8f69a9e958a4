package main

import "github.com/ValentinKolb/treekv/cmd"

func main() {
	cmd.Execute()
}
