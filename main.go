package main

import "github.com/vibast-solutions/ms-go-order-emails/cmd"

func main() {
	cmd.Execute()
}
