package main

import (
	"log"

	"github.com/MrSnakeDoc/ytpush/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ ytpush failed to start: %v", err)
	}
}
