package main

import (
	"github.com/Freeeeeet/studio_booking/internal/app"
	"go.uber.org/fx"
)

func main() {
	fx.New(app.Module).Run()
}
