package main

import "github.com/frahmantamala/donation-checkout/cmd"

func main() {
	cmd.Execute()
}
