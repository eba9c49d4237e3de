// cmd/analytics/main.go
package main

import (
	"fmt"
	"os"

	"github.com/andresuchdata/seller-analytics/internal/analytics"
	"github.com/andresuchdata/seller-analytics/internal/config"
	"github.com/andresuchdata/seller-analytics/internal/loader"
	"github.com/andresuchdata/seller-analytics/internal/render"
	"github.com/andresuchdata/seller-analytics/pkg/logger"
	"github.com/urfave/cli/v2"
)

func main() {
	cfg := config.Load()
	logger.Configure(cfg.LogLevel(), cfg.Log.Format)

	app := &cli.App{
		Name:  "analytics",
		Usage: "Rank sellers of a dataset file by profit",
		Commands: []*cli.Command{
			{
				Name:  "report",
				Usage: "Print the seller report of a dataset file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Usage:    "Path to the dataset file (.json or .xlsx)",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "format",
						Usage: "Output format: table, json or csv",
						Value: string(render.FormatTable),
					},
					&cli.StringFlag{
						Name:    "bonus-rounding",
						Usage:   "Bonus precision: cents or whole",
						Value:   cfg.Analytics.BonusRounding,
						EnvVars: []string{"ANALYTICS_BONUS_ROUNDING"},
					},
					&cli.IntFlag{
						Name:  "top",
						Usage: "Length of the best-selling product list per seller",
						Value: cfg.Analytics.TopProducts,
					},
				},
				Action: runReport,
			},
			{
				Name:  "convert",
				Usage: "Convert a dataset file to JSON or XLSX",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Usage:    "Source dataset file",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "out",
						Usage:    "Destination file, format taken from the extension",
						Required: true,
					},
				},
				Action: runConvert,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("analytics failed")
	}
}

func runReport(c *cli.Context) error {
	format, err := render.ParseFormat(c.String("format"))
	if err != nil {
		return err
	}
	rounding, err := analytics.ParseBonusRounding(c.String("bonus-rounding"))
	if err != nil {
		return err
	}

	dataset, err := loader.LoadFile(c.String("file"))
	if err != nil {
		return err
	}

	report, err := analytics.Analyze(dataset, &analytics.Options{
		BonusRounding: rounding,
		TopProducts:   c.Int("top"),
	})
	if err != nil {
		return err
	}

	return render.Write(os.Stdout, format, report)
}

func runConvert(c *cli.Context) error {
	dataset, err := loader.LoadFile(c.String("file"))
	if err != nil {
		return err
	}

	target, err := loader.DetectFormat(c.String("out"))
	if err != nil {
		return err
	}

	out, err := os.Create(c.String("out"))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", c.String("out"), err)
	}
	defer out.Close()

	switch target {
	case loader.FormatXLSX:
		err = loader.WriteXLSX(dataset, out)
	default:
		err = loader.WriteJSON(dataset, out)
	}
	if err != nil {
		return err
	}

	logger.Log.Info().Str("out", c.String("out")).Msg("Dataset converted")
	return nil
}
