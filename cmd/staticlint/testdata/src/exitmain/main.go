package main

import "os"

func helper() {
	os.Exit(2)
}

func main() {
	helper()
	os.Exit(1) // want "os.Exit call is forbidden in main function: os.Exit\\(1\\)"
}
