package main

import (
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/strangerchat/server/internal/messaging"
)

// tally keeps per-endpoint report counts seen by this console.
type tally struct {
	mu      sync.Mutex
	reports map[string]int
	bans    int
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: .env not loaded: %v", err)
	}

	log.Println("Starting stranger chat moderation console...")

	natsConfig := messaging.DefaultNATSConfig()
	if v := os.Getenv("NATS_URL"); v != "" {
		natsConfig.URL = v
	}
	natsConfig.Name = "strangerchat-moderator"

	natsClient, err := messaging.NewNATSClient(natsConfig)
	if err != nil {
		log.Fatalf("failed to connect to NATS: %v", err)
	}

	t := &tally{reports: make(map[string]int)}

	err = natsClient.Subscribe(messaging.SubjectAllReports, func(msg *nats.Msg) {
		var ev messaging.ReportEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			log.Printf("[moderator] bad report event on %s: %v", msg.Subject, err)
			return
		}

		t.mu.Lock()
		t.reports[ev.ReportedID]++
		seen := t.reports[ev.ReportedID]
		t.mu.Unlock()

		log.Printf("[moderator] REPORT reporter=%s reported=%s session=%s reason=%q count=%d (seen=%d)",
			ev.ReporterID, ev.ReportedID, ev.SessionID, ev.Reason, ev.Count, seen)
	})
	if err != nil {
		log.Fatalf("failed to subscribe to reports: %v", err)
	}

	err = natsClient.Subscribe(messaging.SubjectAllEndpoints, func(msg *nats.Msg) {
		if msg.Subject != messaging.SubjectEndpointBanned {
			return
		}
		var ev messaging.BanEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			log.Printf("[moderator] bad ban event on %s: %v", msg.Subject, err)
			return
		}

		t.mu.Lock()
		t.bans++
		bans := t.bans
		delete(t.reports, ev.EndpointID)
		t.mu.Unlock()

		log.Printf("[moderator] BANNED endpoint=%s reports=%d (total_bans=%d)", ev.EndpointID, ev.Reports, bans)
	})
	if err != nil {
		log.Fatalf("failed to subscribe to endpoint events: %v", err)
	}

	log.Printf("Moderation console running")
	log.Printf("  nats_url: %s", natsConfig.URL)
	log.Printf("  subjects: %s, %s", messaging.SubjectAllReports, messaging.SubjectAllEndpoints)

	// Graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("received signal %v, shutting down...", sig)

	natsClient.Close()
}
