package cmd

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/rubenm/goecu/pkg/dtc"
	"github.com/rubenm/goecu/pkg/log"
)

var rootCmd = &cobra.Command{
	Use:   "goecu",
	Short: "UDS diagnostic responder for socketcan",
	Long:  `goecu answers UDS Read DTC Information (service 0x19) requests on a CAN interface.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup interupt handler for ctrl-c
	quitChan := make(chan os.Signal, 1)
	signal.Notify(quitChan, os.Interrupt)

	go func() {
		s := <-quitChan
		log.Info("got signal, exiting", zap.Stringer("signal", s))
		cancel()
		// Failsafe if there is deadlocks
		<-time.After(10 * time.Second)
		log.Fatal("took too long to shutdown, forcefully exiting")
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initLogger)

	rootCmd.PersistentFlags().StringP("interface", "i", "can0", "CAN interface name")
	rootCmd.PersistentFlags().Uint32("bitrate", 0, "bitrate in bit/s, 0 leaves the link untouched")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "debug mode")
	rootCmd.PersistentFlags().String("dtc-file", dtc.DefaultSource, "DTC source file")

	viper.BindPFlag("interface", rootCmd.PersistentFlags().Lookup("interface"))
	viper.BindPFlag("bitrate", rootCmd.PersistentFlags().Lookup("bitrate"))
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("dtc-file", rootCmd.PersistentFlags().Lookup("dtc-file"))

	viper.SetEnvPrefix("goecu")
	viper.AutomaticEnv()
}

func initLogger() {
	log.InitLogger(viper.GetBool("debug"))
}
