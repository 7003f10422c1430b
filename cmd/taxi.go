package cmd

import (
	"io"
	"log"
	"time"

	"github.com/jaffee/commandeer"
	"github.com/spf13/cobra"
	"github.com/tabkit/tdk/usecase/taxi"
)

// TaxiMain is wrapped by NewTaxiCommand and only exported for testing
// purposes.
var TaxiMain *taxi.Main

// NewTaxiCommand returns a new cobra command wrapping TaxiMain.
func NewTaxiCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var err error
	TaxiMain = taxi.NewMain()
	taxiCommand := &cobra.Command{
		Use:   "taxi",
		Short: "build trip features from nyc green taxi data",
		Long: `Fetches green taxi trip records from urls or local files, computes
haversine trip distance, pickup time-of-day, and geohash cell features,
joins them back onto the trips, and summarizes distance by passenger
count.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			err = TaxiMain.Run()
			if err != nil {
				return err
			}
			log.Println("Done: ", time.Since(start))
			return nil
		},
	}
	flags := taxiCommand.Flags()
	err = commandeer.Flags(flags, TaxiMain)
	if err != nil {
		panic(err)
	}
	return taxiCommand
}

func init() {
	subcommandFns["taxi"] = NewTaxiCommand
}
