package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"slidestudio/config"
	"slidestudio/demo/tui"
	"slidestudio/types"
)

func main() {
	// Load environment
	_ = godotenv.Load()

	// Parse command-line flags
	apiURL := flag.String("url", "http://localhost:"+config.GetEnvOrDefault("PORT", "8080"), "Render API URL")
	planFile := flag.String("plan", "", "Plan JSON file to render")
	runID := flag.String("run", "", "Follow an existing run instead of submitting")
	voice := flag.String("voice", "", "Narrator preset or edge-tts voice")
	publish := flag.Bool("publish", false, "Publish the video after rendering")
	flag.Parse()

	var req types.RenderRequest
	if *runID == "" {
		if *planFile == "" {
			fmt.Println("Usage: demo -plan plan.json | -run <run id>")
			os.Exit(2)
		}
		data, err := os.ReadFile(*planFile)
		if err != nil {
			fmt.Printf("Error reading plan: %v\n", err)
			os.Exit(1)
		}
		plan, err := types.ParsePlan(data)
		if err != nil {
			fmt.Printf("Error parsing plan: %v\n", err)
			os.Exit(1)
		}
		req = types.RenderRequest{Plan: *plan, Voice: *voice, Publish: *publish}
	}

	// Create the tea program
	program := tea.NewProgram(tui.NewModel(*apiURL, req, *runID))

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		program.Quit()
	}()

	// Run the program
	if _, err := program.Run(); err != nil {
		fmt.Printf("Error running program: %v\n", err)
		os.Exit(1)
	}
}
