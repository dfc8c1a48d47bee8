// Package main is the entry point for rewardctl, the Reward Chain client.
package main

func main() {
	Execute()
}
