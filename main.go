package main

import "github.com/snipeworks/solana-sniper/cmd"

func main() {
	cmd.Execute()
}
