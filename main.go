package main

import (
	"log"

	"kestrel-qhse/core/appbootstrap"
)

func main() {
	if err := appbootstrap.Run(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
