package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/dicdwatch/dicdwatch/internal/analytics"
	"github.com/dicdwatch/dicdwatch/internal/analytics/spc"
	"github.com/dicdwatch/dicdwatch/internal/config"
	"github.com/dicdwatch/dicdwatch/internal/logging"
	"github.com/dicdwatch/dicdwatch/internal/queue"
	"github.com/dicdwatch/dicdwatch/internal/source"
	"github.com/dicdwatch/dicdwatch/internal/subscriber"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	entityID := flag.String("entity", "", "Entity ID to seed (required)")
	file := flag.String("file", "", "CSV file: timestamp,value[,top,center,bottom,left,right]")
	lsl := flag.String("lsl", "", "Lower spec limit")
	usl := flag.String("usl", "", "Upper spec limit")
	target := flag.String("target", "", "Spec target (optional)")
	cl := flag.String("cl", "", "Center line")
	ucl := flag.String("ucl", "", "Upper control limit")
	lcl := flag.String("lcl", "", "Lower control limit")
	cp := flag.String("cp", "", "Cp computed upstream (optional)")
	cpk := flag.String("cpk", "", "Cpk computed upstream (optional)")
	pp := flag.String("pp", "", "Pp computed upstream (optional)")
	ppk := flag.String("ppk", "", "Ppk computed upstream (optional)")
	flag.Parse()

	if *entityID == "" {
		log.Fatal("Error: -entity parameter is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Error: failed to load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		log.Fatalf("Error: failed to initialize logger: %v", err)
	}

	codec, err := source.NewCodec(cfg.Source.Compression)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	store, err := source.NewRedisSource(source.RedisConfig{
		URL:       cfg.Source.RedisURL,
		Password:  cfg.Source.RedisPassword,
		DB:        cfg.Source.RedisDB,
		KeyPrefix: cfg.Source.KeyPrefix,
	}, codec, logger)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer func() { _ = store.Close() }()

	batchID := uuid.New().String()
	logger = logger.With("batch_id", batchID, "entity_id", *entityID)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if *file != "" {
		f, err := os.Open(*file)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}
		measurements, err := readMeasurements(f, cfg.Source.LocationOrUTC())
		_ = f.Close()
		if err != nil {
			log.Fatalf("Error reading %s: %v", *file, err)
		}

		written, err := store.WriteMeasurements(ctx, *entityID, measurements)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}
		logger.Info("Measurements written", "count", written, "file", *file)
	}

	if *lsl != "" || *usl != "" {
		bounds, err := specFromFlags(*lsl, *usl, *target)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}
		if err := store.WriteSpecBounds(ctx, *entityID, *bounds); err != nil {
			log.Fatalf("Error: %v", err)
		}
		logger.Info("Spec bounds written", "lsl", bounds.LSL, "usl", bounds.USL)
	}

	if *cl != "" || *ucl != "" || *lcl != "" {
		rec, err := limitsFromFlags(*cl, *ucl, *lcl, map[string]string{"cp": *cp, "cpk": *cpk, "pp": *pp, "ppk": *ppk})
		if err != nil {
			log.Fatalf("Error: %v", err)
		}
		if err := store.WriteControlLimits(ctx, *entityID, *rec); err != nil {
			log.Fatalf("Error: %v", err)
		}
		logger.Info("Control limits written", "cl", rec.Limits.CL, "ucl", rec.Limits.UCL, "lcl", rec.Limits.LCL)
	}

	if !cfg.Invalidation.Enabled() {
		fmt.Printf("Seeded %s (batch %s); running instances refresh when their cache TTL expires\n", *entityID, batchID)
		return
	}

	publisher, err := queue.NewPublisher(cfg.Invalidation)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer func() { _ = publisher.Close() }()

	event := subscriber.InvalidationEvent{
		EntityID: *entityID,
		Reason:   "seed batch " + batchID,
		Origin:   "seed",
		At:       time.Now().UTC(),
	}
	if err := queue.PublishInvalidation(ctx, publisher, cfg.Invalidation.Subject, event); err != nil {
		log.Fatalf("Error publishing invalidation: %v", err)
	}
	fmt.Printf("Seeded %s (batch %s) and published invalidation\n", *entityID, batchID)
}

func specFromFlags(lsl, usl, target string) (*analytics.SpecBounds, error) {
	if lsl == "" || usl == "" {
		return nil, fmt.Errorf("-lsl and -usl must be given together")
	}
	lo, err := optionalFloat("lsl", lsl)
	if err != nil {
		return nil, err
	}
	hi, err := optionalFloat("usl", usl)
	if err != nil {
		return nil, err
	}
	t, err := optionalFloat("target", target)
	if err != nil {
		return nil, err
	}
	bounds := &analytics.SpecBounds{LSL: *lo, USL: *hi, Target: t}
	if err := bounds.Validate(); err != nil {
		return nil, err
	}
	return bounds, nil
}

func limitsFromFlags(cl, ucl, lcl string, indices map[string]string) (*source.LimitsRecord, error) {
	if cl == "" || ucl == "" || lcl == "" {
		return nil, fmt.Errorf("-cl, -ucl and -lcl must be given together")
	}
	parsed := make(map[string]*float64, 3+len(indices))
	for name, value := range map[string]string{"cl": cl, "ucl": ucl, "lcl": lcl} {
		v, err := optionalFloat(name, value)
		if err != nil {
			return nil, err
		}
		parsed[name] = v
	}
	for name, value := range indices {
		v, err := optionalFloat(name, value)
		if err != nil {
			return nil, err
		}
		parsed[name] = v
	}

	rec := &source.LimitsRecord{
		Limits: analytics.ControlLimits{CL: *parsed["cl"], UCL: *parsed["ucl"], LCL: *parsed["lcl"]},
		Capability: spc.CapabilityIndices{
			Cp: parsed["cp"], Cpk: parsed["cpk"], Pp: parsed["pp"], Ppk: parsed["ppk"],
		},
	}
	if err := rec.Limits.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}
