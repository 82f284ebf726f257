package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"slidestudio/app"
	"slidestudio/config"
	"slidestudio/jobs"
	"slidestudio/orchestrator"
	"slidestudio/planner"
	"slidestudio/shared/kafka"
	"slidestudio/types"
)

func main() {
	planFile := flag.String("plan", "", "Plan JSON file to render")
	source := flag.String("source", "", "Text, article URL or feed URL to generate a plan from")
	slides := flag.Int("slides", config.DefaultSlideCount, "Slide count for a generated plan")
	tone := flag.String("tone", string(planner.ToneFormal), "Narration tone: formal, casual or energetic")
	savePlan := flag.String("save-plan", "", "Write the generated plan to this file")
	voice := flag.String("voice", "", "Narrator preset (nanami, keita) or edge-tts voice")
	runID := flag.String("run-id", "", "Run id (defaults to a new uuid)")
	retries := flag.Int("retries", 1, "Re-runs for slides that failed; finished slides are reused")
	publish := flag.Bool("publish", false, "Publish the video with the configured publishers")
	enqueue := flag.Bool("enqueue", false, "Send the request to Kafka instead of rendering locally")

	flag.Parse()

	if (*planFile == "") == (*source == "") {
		flag.Usage()
		log.Fatal("exactly one of --plan or --source is required")
	}

	settings, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := app.New(ctx, settings)
	defer a.Close()

	var plan *types.PresentationPlan
	if *planFile != "" {
		plan, err = readPlan(*planFile)
	} else {
		plan, err = generatePlan(ctx, a.Planner, *source, *slides, *tone)
	}
	if err != nil {
		log.Fatalf("plan error: %v", err)
	}
	if *savePlan != "" {
		if err := writePlan(*savePlan, plan); err != nil {
			log.Fatalf("failed to save plan: %v", err)
		}
		log.Printf("Plan saved to %s", *savePlan)
	}

	id := *runID
	if id == "" {
		id = uuid.NewString()
	}
	if err := jobs.ValidateRunID(id); err != nil {
		log.Fatalf("%v", err)
	}
	req := types.RenderRequest{RunID: id, Plan: *plan, Voice: *voice, Publish: *publish}

	if *enqueue {
		if err := enqueueRequest(settings, req); err != nil {
			log.Fatalf("enqueue failed: %v", err)
		}
		return
	}

	status, err := a.Runner.Execute(ctx, req)
	for attempt := 1; attempt <= *retries && (err != nil || len(status.FailedSlides) > 0); attempt++ {
		if ctx.Err() != nil || (err != nil && !errors.Is(err, orchestrator.ErrNoUnits)) {
			break
		}
		log.Printf("🔁 Retrying failed slides %v (%d/%d)", status.FailedSlides, attempt, *retries)
		status, err = a.Runner.Execute(ctx, req)
	}
	if err != nil {
		log.Fatalf("render failed: %v", err)
	}

	log.Printf("🎬 Video: %s", status.OutputPath)
	if len(status.FailedSlides) > 0 {
		log.Printf("⚠️  Slides left out: %v", status.FailedSlides)
	}
	for _, p := range status.Published {
		log.Printf("Published: %s", p)
	}
}

func readPlan(path string) (*types.PresentationPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return types.ParsePlan(data)
}

func writePlan(path string, plan *types.PresentationPlan) error {
	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func generatePlan(ctx context.Context, p planner.Planner, input string, slides int, tone string) (*types.PresentationPlan, error) {
	if p == nil {
		return nil, errors.New("COHERE_API_KEY is required for --source")
	}
	src, err := planner.ResolveSource(ctx, input)
	if err != nil {
		return nil, err
	}
	log.Printf("Generating plan from %s source (%d chars)", src.Kind, len([]rune(src.Text)))
	return p.Plan(ctx, planner.Request{Text: src.Text, SlideCount: slides, Tone: planner.Tone(tone)})
}

func enqueueRequest(s *config.Settings, req types.RenderRequest) error {
	if len(s.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BOOTSTRAP_SERVERS is not set")
	}
	producer, err := kafka.NewProducer(s.KafkaBrokers, s.KafkaTopic)
	if err != nil {
		return err
	}
	defer producer.Close()

	partition, offset, err := producer.SendJSON(req.RunID, req)
	if err != nil {
		return err
	}
	log.Printf("✅ Enqueued run %s on %s (partition %d, offset %d)", req.RunID, s.KafkaTopic, partition, offset)
	return nil
}
