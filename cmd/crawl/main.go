package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"danji/server/config"
	"danji/server/internal/crawler"
	"danji/server/internal/export"
	"danji/server/internal/naverland"
	"danji/server/internal/regions"
)

func main() {
	var (
		all       = flag.Bool("all", false, "walk every province and export per-district CSV files")
		scope     = flag.String("scope", "", "district code to refresh")
		search    = flag.String("search", "", "complex name to search for")
		city      = flag.String("city", "", "province or city name narrowing the search")
		district  = flag.String("district", "", "district name narrowing the search")
		complexNo = flag.String("complex", "", "complex number to collect directly")
		encoding  = flag.String("encoding", "", "CSV encoding override: utf-8 or cp949")
	)
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if *encoding != "" {
		cfg.Export.Encoding = *encoding
	}

	client := naverland.NewClient(cfg, logger)
	resolver := regions.NewResolver(client, logger)
	crawl := crawler.New(resolver, client, cfg, logger)

	csvWriter, err := export.NewWriter(cfg.Export.Dir, cfg.Export.Encoding, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize CSV export")
	}
	crawl.AddSink(csvWriter)

	switch {
	case *all:
		summary := crawl.EnumerateAll(regions.RootCode)
		logger.WithFields(logrus.Fields{
			"records":   summary.Records,
			"complexes": summary.Complexes,
			"failed":    summary.FailedCount,
		}).Info("National crawl finished")

	case *scope != "":
		summary := crawl.EnumerateScope(*scope)
		logger.WithFields(logrus.Fields{
			"scope":   summary.Scope,
			"records": summary.Records,
			"failed":  summary.FailedCount,
		}).Info("Scope crawl finished")

	case *search != "":
		matches, records := crawl.SearchAndCollect(*search, *city, *district)
		if len(records) > 0 {
			logger.WithField("records", len(records)).Info("Collected matched complex")
			return
		}
		if len(matches) == 0 {
			logger.Warn("No complex matched the query")
			os.Exit(1)
		}
		fmt.Println("Multiple candidates, pass -complex with one of:")
		for _, m := range matches {
			fmt.Printf("  %s  %s (%s, similarity %.2f)\n", m.Code, m.Name, m.Address, m.Similarity)
		}

	case *complexNo != "":
		records := crawl.CollectAndFlush(*complexNo)
		if len(records) == 0 {
			logger.WithField("complex_no", *complexNo).Warn("Nothing collected")
			os.Exit(1)
		}
		logger.WithField("records", len(records)).Info("Collected complex")

	default:
		flag.Usage()
		os.Exit(2)
	}
}
