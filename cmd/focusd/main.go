package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/tasksnap/focusd/internal/clock"
	"github.com/tasksnap/focusd/internal/config"
	"github.com/tasksnap/focusd/internal/gamification"
	"github.com/tasksnap/focusd/internal/history"
	"github.com/tasksnap/focusd/internal/room"
	"github.com/tasksnap/focusd/internal/session"
	"github.com/tasksnap/focusd/internal/ws"
)

// fanout dispatches each session event to every registered notifier.
type fanout []session.Notifier

func (f fanout) Notify(ev session.Event) {
	for _, n := range f {
		n.Notify(ev)
	}
}

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	port := flag.Int("port", 0, "Override server port")
	genToken := flag.Bool("gen-token", false, "Print a fresh auth token and exit")
	flag.Parse()

	if *genToken {
		token, err := config.GenerateToken()
		if err != nil {
			log.Fatalf("Failed to generate token: %v", err)
		}
		fmt.Println(token)
		return
	}

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	store := session.NewStore()
	runner := session.NewRunner(store, session.RunnerConfig{
		Scheduler:      clock.Ticker{},
		TickInterval:   cfg.Session.TickInterval,
		AllowedMinutes: cfg.Session.AllowedMinutes,
		AllowCustom:    cfg.Session.AllowCustom,
		MaxConcurrent:  cfg.Session.MaxConcurrent,
		RetainTerminal: cfg.Session.RetainTerminal,
	})

	broadcaster := ws.NewBroadcaster(store, cfg.Privacy.NewPrivacyFilter(),
		cfg.Session.BroadcastThrottle, cfg.Session.SnapshotInterval, 0)
	defer broadcaster.Stop()

	statsStore := gamification.NewStore(cfg.Gamification.StateDir)
	tracker, eventCh, err := gamification.NewTracker(statsStore, cfg.Gamification.SaveInterval)
	if err != nil {
		log.Fatalf("Failed to load stats: %v", err)
	}
	tracker.OnAchievement(broadcaster.NotifyAchievement)
	tracker.OnStreak(broadcaster.NotifyStreak)
	tracker.OnGarden(broadcaster.NotifyGarden)

	dbPath := cfg.History.DBPath
	if dbPath == "" {
		dbPath = filepath.Join(filepath.Dir(statsStore.Path()), "history.db")
	}
	historyStore, err := history.Open(dbPath)
	if err != nil {
		log.Fatalf("Failed to open history db %s: %v", dbPath, err)
	}
	defer historyStore.Close()

	runner.SetNotifier(fanout{broadcaster, history.NewRecorder(historyStore)})
	runner.SetStatsEvents(eventCh)

	roomInfos := make([]room.Info, 0, len(cfg.Rooms.Rooms))
	for _, rc := range cfg.Rooms.Rooms {
		roomInfos = append(roomInfos, room.Info{ID: rc.ID, Name: rc.Name, Capacity: rc.Capacity})
	}
	rooms, err := room.NewRegistry(roomInfos)
	if err != nil {
		log.Fatalf("Invalid room config: %v", err)
	}
	rooms.SetNotifier(broadcaster)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	trackerDone := make(chan struct{})
	go func() {
		tracker.Run(ctx)
		close(trackerDone)
	}()

	if cfg.Rooms.SimulatePresence && len(roomInfos) > 0 {
		presence := room.NewPresence(rooms, cfg.Rooms.PresenceInterval, 0)
		presence.Start(ctx)
	}

	server := ws.NewServer(cfg, runner, broadcaster)
	server.SetTracker(tracker)
	server.SetHistory(historyStore)
	server.SetRooms(rooms)

	mux := http.NewServeMux()
	server.SetupRoutes(mux)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutting down...")
		cancel()
		<-trackerDone // final stats save
		broadcaster.Stop()
		historyStore.Close()
		os.Exit(0)
	}()

	if err := ws.ListenAndServe(cfg.Server.Host, cfg.Server.Port, mux); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
