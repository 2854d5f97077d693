package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rubenm/goecu"
	"github.com/rubenm/goecu/pkg/log"
)

func init() {
	rootCmd.AddCommand(monitorCmd)
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Monitor the CANbus for frames",
	RunE: func(cmd *cobra.Command, args []string) error {
		log.Info("entering monitoring mode")
		bus, err := goecu.OpenBus(cmd.Context(), goecu.BusConfig{
			Interface: viper.GetString("interface"),
			Bitrate:   viper.GetUint32("bitrate"),
		}, log.L())
		if err != nil {
			return err
		}
		defer bus.Close()

		sub := bus.Subscribe()
		defer sub.Close()

		for {
			select {
			case <-cmd.Context().Done():
				return nil
			case frame, ok := <-sub.Chan():
				if !ok {
					return goecu.ErrResponseChannelClosed
				}
				fmt.Println(frame.ColorString())
			}
		}
	},
}
