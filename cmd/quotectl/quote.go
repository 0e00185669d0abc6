package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"cargo/internal/app"
	"cargo/internal/catalog"
	"cargo/internal/modules/pricing"
)

var quoteFlags struct {
	from, to   string
	hours      int
	urgent     bool
	vehicleID  int
	passengers int
	loaders    int
	bodyType   string
	distance   float64
	services   []string
}

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Price a route, optionally with a vehicle",
	Long:  "Runs stage 1 for the address pair. With --vehicle the full three-stage quote is printed.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		engine, err := app.NewEngine(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer func() { _ = engine.Close() }()

		req := pricing.RouteRequest{From: quoteFlags.from, To: quoteFlags.to}
		if quoteFlags.distance > 0 {
			req.DistanceOverride = &quoteFlags.distance
		}
		if err := engine.Pricing.ValidateDuration(quoteFlags.hours); err != nil {
			return err
		}

		var out any
		if quoteFlags.vehicleID > 0 {
			out, err = engine.Pricing.Complete(ctx, pricing.CompleteRequest{
				Route:         req,
				DurationHours: quoteFlags.hours,
				Urgent:        quoteFlags.urgent,
				Vehicle: pricing.VehicleRequest{
					Passengers: quoteFlags.passengers,
					Loaders:    quoteFlags.loaders,
					BodyType:   catalog.ParseBodyType(quoteFlags.bodyType),
				},
				SelectedVehicleID: quoteFlags.vehicleID,
				ExtraServices:     quoteFlags.services,
			})
		} else {
			out, err = engine.Pricing.QuoteRoute(ctx, req, quoteFlags.hours, quoteFlags.urgent)
		}
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	f := quoteCmd.Flags()
	f.StringVar(&quoteFlags.from, "from", "", "pickup address")
	f.StringVar(&quoteFlags.to, "to", "", "delivery address")
	f.IntVar(&quoteFlags.hours, "hours", 1, "booked duration in hours")
	f.BoolVar(&quoteFlags.urgent, "urgent", false, "apply the urgent pickup multiplier")
	f.IntVar(&quoteFlags.vehicleID, "vehicle", 0, "selected vehicle id (enables the full quote)")
	f.IntVar(&quoteFlags.passengers, "passengers", 0, "passenger seats needed")
	f.IntVar(&quoteFlags.loaders, "loaders", 0, "loaders needed")
	f.StringVar(&quoteFlags.bodyType, "body", "any", "body type: tent, van, board or any")
	f.Float64Var(&quoteFlags.distance, "distance", 0, "override the measured distance in km")
	f.StringSliceVar(&quoteFlags.services, "service", nil, "additional service keys")
	_ = quoteCmd.MarkFlagRequired("from")
	_ = quoteCmd.MarkFlagRequired("to")
}

var vehiclesCmd = &cobra.Command{
	Use:   "vehicles",
	Short: "List available vehicles from the catalog",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := catalog.Open(cfg.Catalog.Path, logger)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		for _, v := range p.Snapshot().AvailableVehicles() {
			fmt.Fprintf(w, "%3d  %-24s %-6s seats=%d loaders=%d  %.0f/h base=%.0f (%g h)\n",
				v.ID, v.Name, v.BodyType, v.MaxPassengers, v.MaxLoaders, v.PricePerHour, v.BasePrice, v.MinBaseDurationHours)
		}
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate-catalog [path]",
	Short: "Decode and validate a calculator catalog file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.Catalog.Path
		if len(args) == 1 {
			path = args[0]
		}
		p, err := catalog.Open(path, logger)
		if err != nil {
			return err
		}
		snap := p.Snapshot()
		fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d vehicles, %d available, %d services)\n",
			path, len(snap.Vehicles), len(snap.AvailableVehicles()), len(snap.AdditionalServices))
		return nil
	},
}
