package main

import (
	"os"

	"github.com/BerryBytes/awsbridge/cmd/root"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := root.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
