package main

import (
	"log"

	"github.com/jaffee/commandeer"
	"github.com/tabkit/tdk/usecase/titanic"
)

func main() {
	if err := commandeer.Run(titanic.NewMain()); err != nil {
		log.Fatal(err)
	}
}
