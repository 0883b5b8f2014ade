// feedmon connects to an Elektron WebSocket server and streams parsed
// messages to console.
// Usage: go run ./cmd/feedmon -server ads1:15000 -user trader1 -items EUR=,JPY= -news
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rickgao/elektron"
)

func main() {
	server := flag.String("server", "localhost:15000", "WebSocket server host:port")
	user := flag.String("user", "", "login user name (defaults to $USER)")
	appID := flag.String("appid", "", "login application id")
	position := flag.String("position", "", "login position")
	service := flag.String("service", "", "service name for item requests")
	items := flag.String("items", "", "comma-separated market price items")
	news := flag.Bool("news", false, "subscribe to the news feed")
	newsItem := flag.String("news-item", "", "news item name (default MRN_STORY)")
	verbose := flag.Bool("verbose", false, "print full message JSON")
	flag.Parse()

	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	login := *user
	if login == "" {
		login = os.Getenv("USER")
	}
	if login == "" {
		logger.Error("no user given and $USER is empty, use -user")
		os.Exit(1)
	}

	var watchlist []string
	if *items != "" {
		watchlist = strings.Split(*items, ",")
	}
	if len(watchlist) == 0 && !*news {
		logger.Error("nothing to watch, use -items and/or -news")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	opts := []elektron.Option{elektron.WithLogger(logger)}
	if *appID != "" {
		opts = append(opts, elektron.WithApplicationID(*appID))
	}
	if *position != "" {
		opts = append(opts, elektron.WithPosition(*position))
	}

	consumer := elektron.New(opts...)

	loggedIn := make(chan struct{})
	var loginOnce sync.Once

	consumer.OnStatus(func(code elektron.StatusCode, payload json.RawMessage) {
		switch code {
		case elektron.StatusLoginResponse:
			if consumer.LoggedIn() {
				loginOnce.Do(func() { close(loggedIn) })
			} else {
				logger.Error("login rejected", "payload", string(payload))
			}
		case elektron.StatusProcessingError:
			logger.Error("processing error", "reason", string(payload))
		case elektron.StatusDisconnected:
			logger.Warn("feed disconnected")
			cancel()
		default:
			fmt.Printf("[STATUS %s] %s\n", code, compact(payload))
		}
	})

	consumer.OnMarketData(func(message json.RawMessage) {
		printData(message, *verbose)
	})

	consumer.OnNews(func(item string, story json.RawMessage) {
		printStory(item, story, *verbose)
	})

	url := "ws://" + *server + "/WebSocket"
	logger.Info("connecting", "url", url, "user", login)

	if err := consumer.Connect(ctx, url, login); err != nil {
		logger.Error("connect failed", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	select {
	case <-loggedIn:
		logger.Info("login accepted")
	case <-time.After(15 * time.Second):
		logger.Error("timed out waiting for login response")
		os.Exit(1)
	case <-ctx.Done():
		return
	}

	if len(watchlist) > 0 {
		id, err := consumer.RequestData(watchlist, elektron.RequestOptions{Service: *service})
		if err != nil {
			logger.Error("item request failed", "error", err)
			os.Exit(1)
		}
		logger.Info("items requested", "items", watchlist, "first_stream", id)
	}

	if *news {
		id, err := consumer.RequestNews(*newsItem, *service)
		if err != nil {
			logger.Error("news request failed", "error", err)
			os.Exit(1)
		}
		logger.Info("news requested", "stream", id)
	}

	// Stats printer
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := consumer.Stats()
				logger.Info("stats",
					"state", stats.State,
					"open_streams", stats.OpenStreams,
					"frames", stats.Router.Frames,
					"messages", stats.Router.Messages,
					"data", stats.Router.Data,
					"pings", stats.Router.Pings,
					"faults", stats.Router.Faults,
					"pending_stories", stats.PendingStories,
				)
			}
		}
	}()

	logger.Info("streaming started - press Ctrl+C to stop")

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")
	if err := consumer.CloseAllRequests(); err != nil {
		logger.Debug("close requests", "error", err)
	}
	consumer.Close()

	logger.Info("shutdown complete")
}

func printData(message json.RawMessage, verbose bool) {
	if verbose {
		data, _ := json.MarshalIndent(message, "", "  ")
		fmt.Printf("[DATA] %s\n", data)
		return
	}

	var head struct {
		ID   int64  `json:"ID"`
		Type string `json:"Type"`
		Key  *struct {
			Name string `json:"Name"`
		} `json:"Key"`
	}
	if err := json.Unmarshal(message, &head); err != nil {
		fmt.Printf("[DATA] %s\n", compact(message))
		return
	}

	item := ""
	if head.Key != nil {
		item = head.Key.Name
	}
	fmt.Printf("[DATA] type=%s id=%d item=%s\n", head.Type, head.ID, item)
}

func printStory(item string, story json.RawMessage, verbose bool) {
	if verbose {
		data, _ := json.MarshalIndent(story, "", "  ")
		fmt.Printf("[NEWS %s] %s\n", item, data)
		return
	}

	var head struct {
		AltID    string `json:"altId"`
		Headline string `json:"headline"`
	}
	if err := json.Unmarshal(story, &head); err != nil {
		fmt.Printf("[NEWS %s] %s\n", item, compact(story))
		return
	}
	fmt.Printf("[NEWS %s] %s %s\n", item, head.AltID, head.Headline)
}

// compact trims a payload to one printable line.
func compact(data json.RawMessage) string {
	s := string(data)
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
