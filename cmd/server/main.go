package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func rootCmd() *cobra.Command {
	r := &cobra.Command{
		Use:   "archive",
		Short: "Bilingual archive server for the Redemption Archive.",
		// serve is the default command.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
		SilenceUsage: true,
	}

	r.AddCommand(serveCmd(), migrateCmd(), syncCmd(), schemaCmd(), passcodeCmd())

	return r
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
