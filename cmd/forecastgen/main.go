// Command forecastgen writes the seeded synthetic PM2.5 forecast artifact.
package main

import (
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/i474232898/pm25-dashboard/internal/config"
	"github.com/i474232898/pm25-dashboard/internal/logging"
	"github.com/i474232898/pm25-dashboard/internal/synthetic"
)

const appName = "forecastgen"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := logging.New(cfg, appName)
	slog.SetDefault(logger)

	def := synthetic.DefaultParams()

	out := flag.String("out", cfg.SyntheticForecastPath, "artifact path")
	days := flag.Int("days", def.Days, "number of days")
	mean := flag.Float64("mean", def.Mean, "mean PM2.5")
	stddev := flag.Float64("stddev", def.StdDev, "standard deviation")
	seed := flag.Uint64("seed", def.Seed, "random seed")
	lo := flag.Float64("min", def.Min, "lower clip bound")
	hi := flag.Float64("max", def.Max, "upper clip bound")
	flag.Parse()

	p := synthetic.Params{
		Days:   *days,
		Mean:   *mean,
		StdDev: *stddev,
		Seed:   *seed,
		Min:    *lo,
		Max:    *hi,
	}

	points, err := synthetic.Publish(*out, p, time.Now())
	if err != nil {
		logger.Error("forecast generation failed", "out", *out, "err", err)
		os.Exit(1)
	}
	logger.Info("forecast data saved", "out", *out, "days", len(points), "start", points[0].Date)
}
