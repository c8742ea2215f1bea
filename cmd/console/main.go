package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"exposure/tui"
)

func main() {
	// Load environment
	_ = godotenv.Load()

	apiURL := flag.String("url", "", "Exposure API URL (defaults to EXPOSURE_API_URL)")
	userID := flag.String("user", "", "User id sent with requests (defaults to EXPOSURE_USER)")
	flag.Parse()

	m := tui.NewModel(*apiURL, *userID)
	program := tea.NewProgram(m)

	if _, err := program.Run(); err != nil {
		fmt.Printf("Console error: %v\n", err)
		os.Exit(1)
	}
}
