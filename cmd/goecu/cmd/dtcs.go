package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rubenm/goecu/pkg/dtc"
)

func init() {
	rootCmd.AddCommand(dtcsCmd)
}

var dtcsCmd = &cobra.Command{
	Use:   "dtcs",
	Short: "Load and print the DTC table",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := dtc.Load(viper.GetString("dtc-file"))
		if err != nil {
			return err
		}
		for _, rec := range store.Records() {
			fmt.Println(rec.String())
		}
		fmt.Printf("%d records\n", store.Len())
		return nil
	},
}
