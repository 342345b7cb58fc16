// Command realtimeprobe logs in to the realtime socket the way the web client
// does and prints every event it receives. Useful for checking the change
// feed end to end against a running server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

func main() {
	base := flag.String("url", "http://localhost:8375", "server base URL")
	token := flag.String("token", "", "access token (Bearer)")
	ping := flag.Duration("ping", 25*time.Second, "interval between ping frames, 0 to disable")
	duration := flag.Duration("duration", 0, "stop after this long, 0 runs until interrupted")
	flag.Parse()

	if *token == "" {
		fmt.Fprintln(os.Stderr, "usage: realtimeprobe -url <base> -token <access token>")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	client := &http.Client{Timeout: 10 * time.Second}
	ticket, err := fetchTicket(ctx, client, *base, *token)
	if err != nil {
		log.Fatalf("ticket: %v", err)
	}

	target, err := socketURL(*base, ticket)
	if err != nil {
		log.Fatalf("socket url: %v", err)
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		if resp != nil {
			log.Fatalf("dial: %v (HTTP %d)", err, resp.StatusCode)
		}
		log.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	log.Printf("connected to %s", strings.SplitN(target, "?", 2)[0])

	if err := stream(ctx, conn, os.Stdout, *ping); err != nil {
		log.Fatalf("stream: %v", err)
	}
}

// fetchTicket exchanges an access token for a single-use socket ticket.
func fetchTicket(ctx context.Context, client *http.Client, base, token string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(base, "/")+"/api/ws/ticket", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var out struct {
		Ticket string `json:"ticket"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.Ticket == "" {
		return "", errors.New("empty ticket")
	}
	return out.Ticket, nil
}

func socketURL(base, ticket string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path += "/api/ws"
	u.RawQuery = url.Values{"ticket": {ticket}}.Encode()
	return u.String(), nil
}

// stream prints one line per event until ctx ends or the server closes.
func stream(ctx context.Context, conn *websocket.Conn, out io.Writer, ping time.Duration) error {
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
			_ = conn.Close()
		case <-done:
		}
	}()

	if ping > 0 {
		go func() {
			t := time.NewTicker(ping)
			defer t.Stop()
			for {
				select {
				case <-t.C:
					if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)); err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		fmt.Fprintln(out, describe(raw))
	}
}

// describe renders a frame as "type table:event {payload}" when it has that shape.
func describe(raw []byte) string {
	var frame struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(raw, &frame); err != nil || frame.Type == "" {
		return string(raw)
	}
	var change struct {
		Table string `json:"table"`
		Event string `json:"event"`
	}
	if json.Unmarshal(frame.Payload, &change) == nil && change.Table != "" {
		return fmt.Sprintf("%s %s:%s %s", frame.Type, change.Table, change.Event, frame.Payload)
	}
	if len(frame.Payload) == 0 {
		return frame.Type
	}
	return fmt.Sprintf("%s %s", frame.Type, frame.Payload)
}
