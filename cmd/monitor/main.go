package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"text2shorts/config"
	"text2shorts/monitor"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	config.Load()

	serverURL := flag.String("url", "http://localhost:"+config.GetEnvOrDefault("PORT", "8080"), "Control server URL")
	topicFile := flag.String("topics", "", "Topic list started with 's'")
	email := flag.Bool("email", false, "Send a report email per topic")
	flag.Parse()

	m := monitor.NewModel(monitor.NewClient(*serverURL), *topicFile, *email)
	program := tea.NewProgram(m)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		program.Quit()
	}()

	if _, err := program.Run(); err != nil {
		fmt.Printf("Error running program: %v\n", err)
		os.Exit(1)
	}
}
