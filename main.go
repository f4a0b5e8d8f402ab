package main

import "github.com/maksfourlife/address-utils/cmd"

func main() {
	cmd.Execute()
}
