// Package main connects one or more clients to the realtime feed and reports
// the events they receive. It doubles as a soak test for the feed hub.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// Metrics tracks what the watchers observed.
type Metrics struct {
	ConnectionsAttempted int64
	ConnectionsSuccess   int64
	ConnectionsFailed    int64
	EventsReceived       int64
	Errors               int64
}

var metrics Metrics

type feedEvent struct {
	Type      string         `json:"type"`
	PostID    uint           `json:"post_id"`
	AccountID uint           `json:"account_id"`
	Payload   map[string]any `json:"payload"`
}

func main() {
	host := flag.String("host", "localhost:8000", "API server host")
	phone := flag.String("phone", "9990001111", "Account phone number")
	password := flag.String("password", "password123", "Account password")
	clients := flag.Int("clients", 1, "Number of concurrent watchers")
	duration := flag.Duration("duration", 0, "Stop after this long (0 runs until interrupted)")
	verbose := flag.Bool("v", true, "Print every event received by the first watcher")
	flag.Parse()

	log.Printf("📡 Watching feed on %s with %d client(s)", *host, *clients)

	token, err := login(*host, *phone, *password)
	if err != nil {
		log.Fatalf("❌ Login failed: %v", err)
	}
	log.Printf("✅ Logged in as %s", *phone)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup
	stopChan := make(chan struct{})

	for i := 0; i < *clients; i++ {
		wg.Add(1)
		go runClient(*host, token, i == 0 && *verbose, stopChan, &wg)
		time.Sleep(20 * time.Millisecond)
	}

	var timeout <-chan time.Time
	if *duration > 0 {
		timeout = time.After(*duration)
	}
	select {
	case <-timeout:
		log.Println("⏱️  Duration reached")
	case <-interrupt:
		log.Println("🛑 Interrupted by user")
	}

	close(stopChan)
	wg.Wait()

	printMetrics()
}

func login(host, phone, password string) (string, error) {
	loginURL := fmt.Sprintf("http://%s/api/auth/login", host)
	body, _ := json.Marshal(map[string]string{
		"phone":    phone,
		"password": password,
	})

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Post(loginURL, "application/json", bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login failed with status %d", resp.StatusCode)
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.Token, nil
}

func runClient(host, token string, verbose bool, stopChan <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()
	atomic.AddInt64(&metrics.ConnectionsAttempted, 1)

	u := url.URL{Scheme: "ws", Host: host, Path: "/ws/feed", RawQuery: url.Values{"token": {token}}.Encode()}

	c, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		atomic.AddInt64(&metrics.ConnectionsFailed, 1)
		atomic.AddInt64(&metrics.Errors, 1)
		if resp != nil {
			log.Printf("dial failed with status %d", resp.StatusCode)
		}
		return
	}
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	defer func() { _ = c.Close() }()

	atomic.AddInt64(&metrics.ConnectionsSuccess, 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, data, err := c.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					atomic.AddInt64(&metrics.Errors, 1)
				}
				return
			}
			atomic.AddInt64(&metrics.EventsReceived, 1)
			if verbose {
				printEvent(data)
			}
		}
	}()

	select {
	case <-stopChan:
		_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	case <-done:
	}
}

func printEvent(data []byte) {
	var ev feedEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		log.Printf("? %s", data)
		return
	}
	switch {
	case ev.PostID != 0:
		log.Printf("• %-14s post=%d account=%d %v", ev.Type, ev.PostID, ev.AccountID, ev.Payload)
	default:
		log.Printf("• %s", data)
	}
}

func printMetrics() {
	fmt.Println()
	fmt.Println("📊 Feed Watch Results")
	fmt.Println("=====================")
	fmt.Printf("Connections attempted: %d\n", metrics.ConnectionsAttempted)
	fmt.Printf("Connections succeeded: %d\n", metrics.ConnectionsSuccess)
	fmt.Printf("Connections failed:    %d\n", metrics.ConnectionsFailed)
	fmt.Printf("Events received:       %d\n", metrics.EventsReceived)
	fmt.Printf("Errors:                %d\n", metrics.Errors)
}
