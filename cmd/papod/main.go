package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mvilela/papo/internal/app"
	"github.com/mvilela/papo/internal/session"
	"go.uber.org/fx"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	flag.Parse()

	profile := session.Resolve(*profileFlag)
	if err := session.ValidateName(profile); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	a := fx.New(
		app.Module(app.Params{Profile: profile}),
	)

	a.Run()
}
