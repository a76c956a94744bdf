package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// errStreamDone stops the stream once enough events were printed
var errStreamDone = errors.New("stream done")

func newWatchCmd() *cobra.Command {
	var jsonOutput bool
	var count int

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the live result stream",
		Long: `Connect to the server's event stream and print events as they arrive.

Events include:
  - connected: Stream opened
  - result: Results, redacted for the logged-in user
  - tests: Problem names
  - users: Workspace names
  - configs: Per-problem sub-tests and settings

Press Ctrl+C to disconnect.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return streamEvents(cmd.Context(), cmd.OutOrStdout(), jsonOutput, count)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output events as JSON lines")
	cmd.Flags().IntVar(&count, "count", 0, "Stop after this many events (0 streams until interrupted)")

	return cmd
}

// SSEEvent represents a parsed SSE event
type SSEEvent struct {
	Time  time.Time `json:"time"`
	Event string    `json:"event"`
	Data  string    `json:"data"`
}

func streamEvents(ctx context.Context, w io.Writer, jsonOutput bool, count int) error {
	// SSE is on the web router, not the API router
	url := strings.TrimSuffix(cfg.ServerURL, "/") + "/events"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	// Add session cookie for web auth
	if cfg.Token != "" {
		req.AddCookie(&http.Cookie{
			Name:  sessionCookie,
			Value: cfg.Token,
		})
	}

	// Unauthenticated requests are redirected to the login page
	httpClient := &http.Client{
		Timeout: 0, // No timeout for SSE
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusFound {
		return errNotLoggedIn
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	printed := 0
	err = parseSSE(resp.Body, func(event, data string) error {
		printEvent(w, event, data, jsonOutput)
		printed++
		if count > 0 && printed >= count {
			return errStreamDone
		}
		return nil
	})

	switch {
	case errors.Is(err, errStreamDone):
		return nil
	case err != nil && ctx.Err() != nil:
		// Context cancellation is expected
		if !jsonOutput {
			fmt.Fprintln(w, "\nDisconnected")
		}
		return nil
	case err != nil:
		return fmt.Errorf("stream error: %w", err)
	}

	if !jsonOutput {
		fmt.Fprintln(w, "Disconnected")
	}
	return nil
}

// parseSSE calls fn for each complete event in r until r ends or fn
// returns an error
func parseSSE(r io.Reader, fn func(event, data string) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var currentEvent string
	var dataLines []string

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "event: "):
			currentEvent = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			dataLines = append(dataLines, strings.TrimPrefix(line, "data: "))
		case line == "":
			// End of event
			if currentEvent != "" {
				if err := fn(currentEvent, strings.Join(dataLines, "\n")); err != nil {
					return err
				}
			}
			currentEvent = ""
			dataLines = nil
		}
	}

	return scanner.Err()
}

func printEvent(w io.Writer, event, data string, jsonOutput bool) {
	now := time.Now()

	if jsonOutput {
		evt := SSEEvent{
			Time:  now,
			Event: event,
			Data:  data,
		}
		jsonData, _ := json.Marshal(evt)
		fmt.Fprintln(w, string(jsonData))
	} else {
		timestamp := now.Format("2006-01-02 15:04:05")
		// Truncate data if it's too long for display
		displayData := data
		if len(displayData) > 100 {
			displayData = displayData[:100] + "..."
		}
		// Remove newlines for cleaner display
		displayData = strings.ReplaceAll(displayData, "\n", " ")
		fmt.Fprintf(w, "[%s] %s: %s\n", timestamp, event, displayData)
	}
}
