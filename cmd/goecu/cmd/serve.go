package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rubenm/goecu"
	"github.com/rubenm/goecu/pkg/dtc"
	"github.com/rubenm/goecu/pkg/isotp"
	"github.com/rubenm/goecu/pkg/log"
	"github.com/rubenm/goecu/pkg/uds"
)

func init() {
	serveCmd.Flags().String("ecu-id", "0x7E0", "CAN identifier requests are received on")
	serveCmd.Flags().Uint32("resp-offset", 0, "response identifier offset, 0 uses the default 0x08")

	viper.BindPFlag("ecu-id", serveCmd.Flags().Lookup("ecu-id"))
	viper.BindPFlag("resp-offset", serveCmd.Flags().Lookup("resp-offset"))

	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Answer Read DTC Information requests on the bus",
	RunE: func(cmd *cobra.Command, args []string) error {
		reqID, err := parseIdentifier(viper.GetString("ecu-id"))
		if err != nil {
			return err
		}

		store, err := dtc.Load(viper.GetString("dtc-file"))
		if err != nil {
			return err
		}
		log.Info("DTC table loaded",
			zap.String("source", viper.GetString("dtc-file")),
			zap.Int("records", store.Len()),
		)

		bus, err := goecu.OpenBus(cmd.Context(), goecu.BusConfig{
			Interface: viper.GetString("interface"),
			Bitrate:   viper.GetUint32("bitrate"),
		}, log.L())
		if err != nil {
			return err
		}
		defer bus.Close()

		offset := viper.GetUint32("resp-offset")
		responder := uds.New(store, func(id uint32) (uds.Session, error) {
			return bus.AcquireSession(id, offset)
		}, uds.DefaultConfig(), log.L())

		sub := bus.Subscribe(reqID)
		defer sub.Close()

		log.Info("serving",
			zap.String("interface", viper.GetString("interface")),
			zap.Uint32("ecuID", reqID),
		)

		g, ctx := errgroup.WithContext(cmd.Context())
		g.Go(func() error {
			return serveLoop(ctx, responder, sub, reqID)
		})
		return g.Wait()
	},
}

// serveLoop handles requests one at a time, a session is exclusively owned
// for the duration of one ReadDTC call.
func serveLoop(ctx context.Context, responder *uds.Responder, sub *goecu.Subscriber, reqID uint32) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case frame, ok := <-sub.Chan():
			if !ok {
				return goecu.ErrResponseChannelClosed
			}
			handleRequest(ctx, responder, frame, reqID)
		}
	}
}

func handleRequest(ctx context.Context, responder *uds.Responder, frame *goecu.CANFrame, reqID uint32) {
	parsed, err := isotp.Parse(frame.Data)
	if err != nil {
		log.Debug("dropping unparseable frame", zap.String("frame", frame.String()), zap.Error(err))
		return
	}
	sf, ok := parsed.(*isotp.Single)
	if !ok {
		// flow control and segments belong to an in-flight exchange
		return
	}
	if len(sf.Data) == 0 || sf.Data[0] != uds.ServiceReadDTCInformation {
		log.Debug("ignoring foreign service", zap.String("frame", frame.String()))
		return
	}
	if err := responder.ReadDTC(ctx, reqID, sf.Data[1:]); err != nil {
		switch {
		case errors.Is(err, uds.ErrUnsupportedSubFunction), errors.Is(err, uds.ErrMalformedRequest):
			log.Info("request ignored", zap.Error(err))
		default:
			log.Error("request failed", zap.Error(err))
		}
	}
}

func parseIdentifier(s string) (uint32, error) {
	id, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("identifier %q: %w", s, err)
	}
	return uint32(id), nil
}
