package main

import (
	"fxledger/internal/app"
	_ "time/tzdata"

	"github.com/sirupsen/logrus"
)

// @title fxledger API
// @version 1.0
// @description Stores published FX rates per tenant and pushes them to the tenants' accounting ledgers.
// @BasePath /api/v1
func main() {
	if err := app.Run(); err != nil {
		logrus.WithError(err).Fatal("Application stopped")
	}
}
