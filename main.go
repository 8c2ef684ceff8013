package main

import "github.com/ValentinKolb/pRepo/cmd"

func main() {
	cmd.Execute()
}
