// hc-store-cat prints the hit samples held in a store
package main

func main() {
	Execute()
}
