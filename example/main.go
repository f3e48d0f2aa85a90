package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ivikasavnish/go-replay/pkg/codec"
	"github.com/ivikasavnish/go-replay/pkg/recorder"
	"github.com/ivikasavnish/go-replay/pkg/store"
)

func main() {
	st := store.NewMemoryStore()

	// Build a recording programmatically, the way a capture surface would.
	rec := recorder.New(st,
		recorder.WithLogger(log.New(os.Stdout, "[RECORDER] ", log.LstdFlags)),
	)

	id, err := rec.Start(recorder.StartOptions{
		Name:      "login flow",
		StartURL:  "https://app.example.test/login",
		Variables: map[string]string{"username": "demo"},
	})
	if err != nil {
		log.Fatalf("Failed to start recording: %v", err)
	}
	fmt.Printf("recording %s started\n\n", id)

	rec.OnNavigate(recorder.NavigateEvent{URL: "https://app.example.test/login", Title: "Sign in"})
	rec.OnClick(recorder.ClickEvent{Selector: "#username"})

	// Consecutive keystroke bursts on the same field merge into one action.
	rec.OnType(recorder.TypeEvent{Selector: "#username", Text: "{{user"})
	rec.OnType(recorder.TypeEvent{Selector: "#username", Text: "name}}"})

	rec.OnType(recorder.TypeEvent{Selector: "#password", Text: "hunter2"})
	if _, err := rec.AddWait(500 * time.Millisecond); err != nil {
		log.Fatalf("Failed to add wait: %v", err)
	}
	rec.OnClick(recorder.ClickEvent{Selector: "#submit", Button: "left"})

	recording, err := rec.Stop(recorder.StopOptions{})
	if err != nil {
		log.Fatalf("Failed to stop recording: %v", err)
	}

	fmt.Printf("captured %d actions\n\n", len(recording.Actions))

	// Resolve variables and print the generated Puppeteer script.
	for i, a := range recording.Actions {
		recording.Actions[i] = a.SubstituteVariables(recording.Variables)
	}

	script, err := codec.Compile(codec.FormatPuppeteerJS, recording.Actions, codec.Options{})
	if err != nil {
		log.Fatalf("Failed to compile script: %v", err)
	}
	fmt.Println(script)
}
