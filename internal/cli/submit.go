package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

const (
	sessionCookie = "sessionId"

	// How long to wait for the server's reply to a submission
	submitTimeout = 30 * time.Second
)

// Frame is the real-time channel envelope
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// SubmitRequest is the payload of a submit frame
type SubmitRequest struct {
	Username string `json:"username"`
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// SubmitReply is the server's answer to a submission
type SubmitReply struct {
	Message string `json:"message"`
}

func newSubmitCmd() *cobra.Command {
	var user, name string

	cmd := &cobra.Command{
		Use:   "submit <file>",
		Short: "Submit a solution",
		Long: `Submit a source file over the real-time channel. The problem is the file
name up to its first dot, so "sum.cpp" is a solution for problem "sum".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Token == "" {
				return errNotLoggedIn
			}

			content, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			if name == "" {
				name = filepath.Base(args[0])
			}

			if user == "" {
				var me Viewer
				if err := client.Get(cmd.Context(), "/api/v1/me", &me); err != nil {
					return explainAuth(err)
				}
				user = me.Username
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), submitTimeout)
			defer cancel()

			reply, err := submit(ctx, SubmitRequest{
				Username: user,
				Filename: name,
				Content:  string(content),
			})
			if err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.PrintMessage(reply.Message)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Submit as this user (default: the logged-in user)")
	cmd.Flags().StringVar(&name, "name", "", "File name sent to the server (default: the file's base name)")

	return cmd
}

// submit sends one submission and waits for the reply, skipping the
// broadcast frames that arrive meanwhile
func submit(ctx context.Context, req SubmitRequest) (*SubmitReply, error) {
	wsURL, err := websocketURL(cfg.ServerURL)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("Cookie", (&http.Cookie{Name: sessionCookie, Value: cfg.Token}).String())

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusFound {
			return nil, errNotLoggedIn
		}
		return nil, fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
		_ = conn.SetWriteDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal submission: %w", err)
	}
	if err := conn.WriteJSON(Frame{Event: "submit", Data: data}); err != nil {
		return nil, fmt.Errorf("failed to send submission: %w", err)
	}

	for {
		var frame Frame
		if err := conn.ReadJSON(&frame); err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("no reply from server: %w", ctx.Err())
			}
			return nil, fmt.Errorf("failed to read reply: %w", err)
		}
		if frame.Event != "submit" {
			continue
		}

		var reply SubmitReply
		if err := json.Unmarshal(frame.Data, &reply); err != nil {
			return nil, fmt.Errorf("failed to parse reply: %w", err)
		}
		return &reply, nil
	}
}

// websocketURL maps the server URL onto the /ws endpoint
func websocketURL(server string) (string, error) {
	u, err := url.Parse(strings.TrimSuffix(server, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported server URL scheme %q", u.Scheme)
	}
	u.Path += "/ws"
	return u.String(), nil
}
