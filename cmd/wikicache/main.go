package main

import (
	"log"

	"github.com/offcache/wikicache/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ wikicache failed to start: %v", err)
	}
}
