package cmd

import (
	"io"
	"log"
	"time"

	"github.com/jaffee/commandeer"
	"github.com/spf13/cobra"
	"github.com/tabkit/tdk/usecase/titanic"
)

// TitanicMain is wrapped by NewTitanicCommand and only exported for testing
// purposes.
var TitanicMain *titanic.Main

// NewTitanicCommand returns a new cobra command wrapping TitanicMain.
func NewTitanicCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var err error
	TitanicMain = titanic.NewMain()
	titanicCommand := &cobra.Command{
		Use:   "titanic",
		Short: "compute survival likelihood per age bucket from titanic data",
		Long: `Loads the titanic passenger CSV from a file, directory, or set of
urls, runs the age-bucket survival query both row by row and with frame
verbs, checks the two agree, and prints the resulting tables. Task outputs
are materialized so an unchanged pipeline is not recomputed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			err = TitanicMain.Run()
			if err != nil {
				return err
			}
			log.Println("Done: ", time.Since(start))
			return nil
		},
	}
	flags := titanicCommand.Flags()
	err = commandeer.Flags(flags, TitanicMain)
	if err != nil {
		panic(err)
	}
	return titanicCommand
}

func init() {
	subcommandFns["titanic"] = NewTitanicCommand
}
