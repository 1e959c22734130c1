package main

import (
	"flag"
	"fmt"
	"net/url"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tasksnap/focusd/internal/tui/app"
	"github.com/tasksnap/focusd/internal/tui/client"
)

func main() {
	wsURL := flag.String("url", "ws://127.0.0.1:8484/ws", "WebSocket URL of the focusd server")
	token := flag.String("token", "", "Auth token (if the server requires one)")
	flag.Parse()

	httpBase := deriveHTTPBase(*wsURL)

	ws := client.NewWSClient(*wsURL, *token)
	httpClient := client.NewHTTPClient(httpBase, *token)

	m := app.New(ws, httpClient, []int{15, 25, 45, 60})
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// deriveHTTPBase converts ws://host:port/ws to http://host:port.
func deriveHTTPBase(wsURL string) string {
	u, err := url.Parse(wsURL)
	if err != nil {
		return "http://127.0.0.1:8484"
	}
	scheme := "http"
	if strings.HasPrefix(u.Scheme, "wss") {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, u.Host)
}
