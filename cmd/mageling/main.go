package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mageling/arena/internal/config"
	"github.com/mageling/arena/internal/data"
	"github.com/mageling/arena/internal/input"
	"github.com/mageling/arena/internal/persist"
	"github.com/mageling/arena/internal/replay"
	"github.com/mageling/arena/internal/rollback"
	"github.com/mageling/arena/internal/scripting"
	"github.com/mageling/arena/internal/session"
	"github.com/mageling/arena/internal/sim"
	"github.com/mageling/arena/internal/system"
	"github.com/mageling/arena/internal/transport"
)

const usage = "usage: mageling [play | synctest | verify [limit]]"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(mode string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m              Mageling Arena               \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m       rollback netcode · headless peer    \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mmode:\033[0m %s\n\n", mode)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Commands ──────────────────────────────────────────────────────

func run(args []string) error {
	cmd := "play"
	if len(args) > 0 {
		cmd = args[0]
	}

	// 1. Load config
	cfg, err := config.Load(config.Path())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := cfg.Logging.Logger()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "play":
		printBanner(cfg.Network.Mode)
		return play(ctx, cfg, log)
	case "synctest":
		printBanner("synctest")
		return syncTest(ctx, cfg, log)
	case "verify":
		limit := 10
		if len(args) > 1 {
			if _, err := fmt.Sscanf(args[1], "%d", &limit); err != nil || limit < 1 {
				return fmt.Errorf("bad limit %q", args[1])
			}
		}
		return verify(ctx, cfg, limit, log)
	default:
		return errors.New(usage)
	}
}

// play runs the configured peers until their match is over. Finished matches
// go to the database when one is configured.
func play(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	var (
		writer *persist.Writer
		sink   session.MatchSink
	)
	if cfg.Database.DSN != "" {
		db, err := openDB(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer db.Close()
		writer = persist.NewWriter(persist.NewRepos(db), cfg.Database.WriteQueueSize, log)
		sink = writer
	} else {
		log.Info("no database configured, match history disabled")
	}

	g, gctx := errgroup.WithContext(ctx)
	if writer != nil {
		g.Go(func() error { return writer.Run(gctx) })
	}
	g.Go(func() error {
		if writer != nil {
			defer writer.Close()
		}
		switch strings.ToLower(cfg.Network.Mode) {
		case "websocket":
			return playRelay(gctx, cfg, sink, log)
		default:
			return playLoopback(gctx, cfg, sink, log)
		}
	})
	return g.Wait()
}

// playLoopback runs every player in this process over an in-memory hub.
func playLoopback(ctx context.Context, cfg *config.Config, sink session.MatchSink, log *zap.Logger) error {
	hub := transport.NewHub()
	endpoints := make([]*transport.Endpoint, 0, cfg.Session.Players)
	defer func() {
		for _, ep := range endpoints {
			ep.Close()
		}
	}()

	sessions := make([]*session.Session, 0, cfg.Session.Players)
	for i := 1; i <= cfg.Session.Players; i++ {
		ep := hub.Join(transport.PeerID(i))
		endpoints = append(endpoints, ep)
		s, engine, err := newSession(cfg, ep, sink, "loopback", log)
		if err != nil {
			return err
		}
		defer engine.Close()
		sessions = append(sessions, s)
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, s := range sessions {
		g.Go(func() error { return s.Run(gctx) })
	}
	printReady(fmt.Sprintf("%d local peers started", cfg.Session.Players))
	return g.Wait()
}

// playRelay joins a relay room and plays one peer.
func playRelay(ctx context.Context, cfg *config.Config, sink session.MatchSink, log *zap.Logger) error {
	dialCtx, cancel := context.WithTimeout(ctx, cfg.Network.DialTimeout)
	ws, err := transport.DialWebSocket(dialCtx, cfg.Network.RelayURL, cfg.Network.OutQueueSize, log)
	cancel()
	if err != nil {
		return err
	}
	defer ws.Close()
	printOK(fmt.Sprintf("joined relay as %s", ws.LocalID()))

	s, engine, err := newSession(cfg, ws, sink, roomName(cfg.Network.RelayURL), log)
	if err != nil {
		return err
	}
	defer engine.Close()
	printReady("waiting for players")
	return s.Run(ctx)
}

// newSession builds a session whose local handles are driven by the bot
// scripts. Each session gets its own Lua VM.
func newSession(cfg *config.Config, t transport.Transport, sink session.MatchSink, room string, log *zap.Logger) (*session.Session, *scripting.Engine, error) {
	engine, err := scripting.NewEngine(cfg.Data.BotScripts, log)
	if err != nil {
		return nil, nil, err
	}
	var devices session.DeviceFactory
	if engine.HasBot() {
		devices = session.BotDevices(engine)
	} else {
		log.Warn("no bot_poll script found, local players stay idle", zap.String("dir", cfg.Data.BotScripts))
	}
	s, err := session.New(session.Options{
		Config:    cfg,
		Transport: t,
		Devices:   devices,
		Sink:      sink,
		Room:      room,
		Log:       log,
	})
	if err != nil {
		engine.Close()
		return nil, nil, err
	}
	return s, engine, nil
}

func roomName(relayURL string) string {
	u, err := url.Parse(relayURL)
	if err != nil {
		return ""
	}
	return strings.Trim(u.Path, "/")
}

// syncTest plays a full local match with bot input through a SyncTest
// session, which rolls back and resimulates every frame and fails on the
// first checksum mismatch.
func syncTest(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	static, err := loadStatic(cfg)
	if err != nil {
		return err
	}
	players := cfg.Session.Players
	world, err := sim.NewMatchWorld(static, players)
	if err != nil {
		return err
	}
	game := system.NewSimulation(world, cfg.Session.FPS)

	distance := cfg.Session.CheckDistance
	if distance == 0 {
		distance = cfg.Session.MaxPrediction - 1
	}
	b := rollback.NewBuilder[*sim.World]().
		WithNumPlayers(players).
		WithMaxPrediction(cfg.Session.MaxPrediction).
		WithInputDelay(cfg.Session.InputDelay).
		WithFPS(cfg.Session.FPS).
		WithLogger(log)
	for h := 0; h < players; h++ {
		b.AddPlayer(rollback.LocalPlayer(), input.Handle(h))
	}
	st, err := b.StartSyncTest(distance)
	if err != nil {
		return err
	}

	engine, err := scripting.NewEngine(cfg.Data.BotScripts, log)
	if err != nil {
		return err
	}
	defer engine.Close()
	devices := make([]input.Device, players)
	for h := range devices {
		h := input.Handle(h)
		if engine.HasBot() {
			observe := func(frame int) scripting.Observation { return session.ObserveWorld(game.World, h, frame) }
			devices[h] = scripting.NewBotDevice(engine, observe, log.With(zap.Int("handle", int(h))))
		} else {
			devices[h] = input.Idle
		}
	}

	r := cfg.Round
	limit := r.Rounds*(r.BetweenRoundFrames+max(r.RoundFrames, 60*cfg.Session.FPS)) + 1
	log.Info("synctest starting", zap.Int("players", players), zap.Int("check_distance", distance), zap.Int("frame_limit", limit))

	for st.CurrentFrame() < limit && game.World.Round.Phase != sim.RoundMatchOver {
		if err := ctx.Err(); err != nil {
			return nil
		}
		frame := st.CurrentFrame()
		for h, dev := range devices {
			p := input.Sample(dev.Poll(frame), game.World.InputView(input.Handle(h)))
			if err := st.AddLocalInput(input.Handle(h), p); err != nil {
				return err
			}
		}
		if err := st.AdvanceFrame(game); err != nil {
			return fmt.Errorf("synctest: %w", err)
		}
	}
	sum := game.World.Checksum()
	log.Info("synctest passed",
		zap.Int("frames", st.CurrentFrame()),
		zap.Stringer("phase", game.World.Round.Phase),
		zap.Binary("checksum", sum[:8]))
	printOK(fmt.Sprintf("synctest passed after %d frames", st.CurrentFrame()))
	return nil
}

// verify replays the most recent stored matches and compares their final
// checksums with the recorded ones.
func verify(ctx context.Context, cfg *config.Config, limit int, log *zap.Logger) error {
	if cfg.Database.DSN == "" {
		return errors.New("verify needs [database] dsn")
	}
	db, err := openDB(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	level, err := data.LoadLevel(cfg.Data.Level)
	if err != nil {
		return fmt.Errorf("load level: %w", err)
	}
	abilities, err := data.LoadAbilityTable(cfg.Data.Abilities)
	if err != nil {
		return fmt.Errorf("load abilities: %w", err)
	}

	repos := persist.NewRepos(db)
	matches, err := repos.Recent(ctx, limit)
	if err != nil {
		return fmt.Errorf("list matches: %w", err)
	}
	bad := 0
	for _, m := range matches {
		inputs, err := repos.LoadInputs(ctx, m.ID)
		if err != nil {
			return fmt.Errorf("match %d: %w", m.ID, err)
		}
		sum, err := replay.Run(level, abilities, cfg, inputs)
		if err != nil {
			return fmt.Errorf("match %d: %w", m.ID, err)
		}
		ok := sum == m.FinalChecksum
		if !ok {
			bad++
		}
		log.Info("match replayed",
			zap.Int64("match", m.ID),
			zap.String("level", m.Level),
			zap.Int("frames", inputs.Len()),
			zap.Bool("match", ok))
	}
	if bad > 0 {
		return fmt.Errorf("%d of %d matches replayed to a different checksum", bad, len(matches))
	}
	printOK(fmt.Sprintf("%d matches verified", len(matches)))
	return nil
}

func openDB(ctx context.Context, cfg *config.Config, log *zap.Logger) (*persist.DB, error) {
	db, err := persist.NewDB(ctx, cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	version, err := db.Migrate(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	printOK(fmt.Sprintf("PostgreSQL ready (schema %d)", version))
	return db, nil
}

func loadStatic(cfg *config.Config) (*sim.Static, error) {
	level, err := data.LoadLevel(cfg.Data.Level)
	if err != nil {
		return nil, fmt.Errorf("load level: %w", err)
	}
	abilities, err := data.LoadAbilityTable(cfg.Data.Abilities)
	if err != nil {
		return nil, fmt.Errorf("load abilities: %w", err)
	}
	return sim.NewStatic(level, cfg.Setup(abilities))
}
