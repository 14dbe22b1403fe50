package main

import "ridemate/cmd"

func main() {
	cmd.Run()
}
