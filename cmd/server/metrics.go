package main

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gtixt/console/internal/jobs"
	"github.com/gtixt/console/internal/metrics"
	"github.com/gtixt/console/internal/repository"
)

func startMetricsCollector(repo repository.RunRepository, registry *jobs.Registry, logger *logrus.Logger) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		updateRunGauges(repo, registry, logger)
	}
}

func updateRunGauges(repo repository.RunRepository, registry *jobs.Registry, logger *logrus.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	running := 0
	for _, spec := range registry.List() {
		count, err := repo.CountRunning(ctx, spec.Name)
		if err != nil {
			logger.WithError(err).Warn("Failed to count running jobs for metrics")
			return
		}
		running += count
	}

	metrics.UpdateJobsRunning(running)
}
