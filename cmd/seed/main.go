// Command seed exercises the full pipeline offline: it generates a root
// scene from the canned backend, navigates forward and backward from it, and
// prints the resulting chain.
package main

import (
	"context"
	"log"

	"timepoint/backend/internal/logging"
	"timepoint/backend/internal/pipeline"
	"timepoint/backend/internal/provider"
	"timepoint/backend/internal/repository"
	"timepoint/backend/internal/services"
	"timepoint/backend/internal/temporal"
)

func main() {
	ctx := context.Background()
	logger := logging.NewLogger()

	router := provider.NewRouter(logger)
	router.Register(provider.NewCanned("canned", nil), 0, 1, 0)

	orch := pipeline.NewOrchestrator(router, logger, 2, 0)
	store := repository.NewInMemorySceneStore()
	svc := services.NewSceneService(orch, store, logger)

	root, run, err := svc.Generate(ctx, "the signing of the Declaration of Independence")
	if err != nil {
		log.Fatalf("generate: %v", err)
	}
	logger.Info("root scene", "id", root.ID, "status", root.Status, "progress", run.Progress, "when", root.Point.Describe())

	next, _, err := svc.Navigate(ctx, services.NavigationRequest{
		FromID:    root.ID,
		Unit:      temporal.UnitDay,
		Count:     1,
		Direction: temporal.Forward,
	})
	if err != nil {
		log.Fatalf("navigate forward: %v", err)
	}
	logger.Info("next scene", "id", next.ID, "when", next.Point.Describe())

	prior, _, err := svc.Navigate(ctx, services.NavigationRequest{
		FromID:    root.ID,
		Unit:      temporal.UnitHour,
		Count:     3,
		Direction: temporal.Backward,
	})
	if err != nil {
		log.Fatalf("navigate backward: %v", err)
	}
	logger.Info("prior scene", "id", prior.ID, "when", prior.Point.Describe())

	back, err := svc.GetSequence(ctx, root.ID, temporal.Backward, 10)
	if err != nil {
		log.Fatalf("sequence backward: %v", err)
	}
	fwd, err := svc.GetSequence(ctx, root.ID, temporal.Forward, 10)
	if err != nil {
		log.Fatalf("sequence forward: %v", err)
	}
	chain := append(back.Scenes, root)
	chain = append(chain, fwd.Scenes...)
	for i, s := range chain {
		logger.Info("chain entry", "index", i, "id", s.ID, "slug", s.Slug, "when", s.Point.Describe())
	}
}
