package main

import "github.com/emaland/pricedata/cmd"

func main() {
	cmd.Execute()
}
