package main

import (
	"context"
	"log"

	"github.com/dalemusser/waffle/app"
	"github.com/scouthq/troophub/internal/app/bootstrap"
)

func main() {
	if err := app.Run(context.Background(), bootstrap.Hooks); err != nil {
		log.Fatal(err)
	}
}
