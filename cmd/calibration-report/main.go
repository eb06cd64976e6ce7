package main

import (
	"flag"
	"fmt"
	"log"
	"sort"

	"github.com/joho/godotenv"

	"github.com/ajharbinger/lead-funnel/internal/models"
	"github.com/ajharbinger/lead-funnel/internal/scoring"
	"github.com/ajharbinger/lead-funnel/pkg/config"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.New()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	calibrationFile := flag.String("calibration-file", cfg.CalibrationFile, "YAML or JSON calibration to include")
	days := flag.Int("days", 90, "age of the sample lead in days (negative: unknown)")
	stage := flag.String("stage", string(models.StageNegotiation), "stage of the sample lead")
	flag.Parse()

	registry, err := scoring.LoadRegistry(scoring.BaselineID, *calibrationFile)
	if err != nil {
		log.Fatalf("Failed to load calibrations: %v", err)
	}

	lead := sampleLead(models.ParseStage(*stage), *days)

	fmt.Println("🎯 Lead Funnel Calibration Report")
	fmt.Println("=================================")
	fmt.Printf("Sample lead: %s | stage %s | budget %.0f | %d interactions via %s\n",
		lead.Name, lead.Stage, lead.Budget, lead.InteractionCount, lead.Channel)
	if lead.AgeKnown() {
		fmt.Printf("Age: %d days\n", *lead.DaysSinceCreation)
	} else {
		fmt.Println("Age: unknown")
	}

	engine := scoring.NewScoringEngine()
	for _, cal := range registry.List() {
		fmt.Printf("\n🔹 %s (%s)\n", cal.Name, cal.ID)
		fmt.Println("===================================")
		printScoredLead(engine.Score(lead, cal))
	}
}

// sampleLead is the reference opportunity: six interactions through Meta,
// a budget inside the preferred band and replies on every channel
func sampleLead(stage models.Stage, days int) models.Lead {
	lead := models.Lead{
		Row:              1,
		Name:             "Casa Robles",
		Owner:            "Ana",
		Budget:           480000,
		InteractionCount: 6,
		Channel:          "Meta",
		Stage:            stage,
		RawStage:         string(stage),
		RepliedEmail:     true,
		RepliedMessage:   true,
		RepliedCall:      true,
	}
	if days >= 0 {
		lead.DaysSinceCreation = &days
	}
	return lead
}

func printScoredLead(result models.ScoredLead) {
	fmt.Printf("Base probability:  %.4f\n", result.BaseProbability)
	fmt.Printf("Decay factor:      %.4f\n", result.DecayFactor)
	fmt.Printf("Horizon factor:    %.4f\n", result.HorizonFactor)
	fmt.Printf("Final probability: %.4f\n", result.FinalProbability)
	fmt.Printf("Expected value:    %.2f\n", result.ExpectedValue)
	if result.Gate != models.GateNone {
		fmt.Printf("Gate:              %s\n", result.Gate)
	}

	fmt.Println("\nDetailed Breakdown:")
	fmt.Println("------------------")

	keys := make([]string, 0, len(result.Breakdown))
	for key := range result.Breakdown {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		detail := result.Breakdown[key]
		status := "❌"
		if detail.Triggered {
			status = "✅"
		}
		fmt.Printf("%s %s (%.4f): %s\n", status, key, detail.Value, detail.Description)
	}
}
