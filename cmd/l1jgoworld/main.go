package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/l1jgo/server/internal/batch"
	"github.com/l1jgo/server/internal/config"
	"github.com/l1jgo/server/internal/data"
	"github.com/l1jgo/server/internal/dispatch"
	"github.com/l1jgo/server/internal/gameclock"
	"github.com/l1jgo/server/internal/geom"
	"github.com/l1jgo/server/internal/identity"
	"github.com/l1jgo/server/internal/netio"
	"github.com/l1jgo/server/internal/persist"
	"github.com/l1jgo/server/internal/worldmap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers (teacher's cmd/l1jgo/main.go idiom) ────

func printBanner(serverName string, serverID int) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m            L1JGO-World  v0.1.0            \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mserver:\033[0m %s \033[90m(id: %d)\033[0m\n\n", serverName, serverID)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ───────────────────────────────────────────────

func run() error {
	cfgPath := "config/server.toml"
	if p := os.Getenv("L1JGO_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name, cfg.Server.ID)

	printSection("database")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := persist.NewDB(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()
	printOK("postgresql connected")

	if err := persist.RunMigrations(ctx, db.Pool); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	printOK("schema migrations applied")
	fmt.Println()

	accounts := persist.NewAccountRepo(db)
	characters := persist.NewCharacterRepo(db)
	items := persist.NewItemRepo(db)
	logs := persist.NewLogRepo(db)

	printSection("static data")

	mapData, err := data.LoadMapData("data/yaml/map_list.yaml")
	if err != nil {
		return fmt.Errorf("load map data: %w", err)
	}
	printStat("map groups", mapData.Count())

	npcTable, err := data.LoadNpcTable("data/yaml/npc_list.yaml")
	if err != nil {
		return fmt.Errorf("load npc table: %w", err)
	}

	dropTable, err := data.LoadDropTable("data/yaml/drop_list.yaml")
	if err != nil {
		return fmt.Errorf("load drop table: %w", err)
	}
	printStat("drop rules", dropTable.Count())
	npcTable.WithDrops(dropTable)
	printStat("npc templates", npcTable.Count())

	spawnList, err := data.LoadSpawnList("data/yaml/spawn_list.yaml")
	if err != nil {
		return fmt.Errorf("load spawn list: %w", err)
	}
	printStat("spawn rules", len(spawnList))

	portalTable, err := data.LoadPortalTable("data/yaml/portal_list.yaml")
	if err != nil {
		return fmt.Errorf("load portal table: %w", err)
	}
	printStat("portals", portalTable.Count())

	shopTable, err := data.LoadShopTable("data/yaml/shop_list.yaml")
	if err != nil {
		return fmt.Errorf("load shop table: %w", err)
	}
	printStat("shops", shopTable.Count())
	fmt.Println()

	// World: one Actor goroutine per map-group (spec.md §4.1 "B — Map
	// Actor"). senders is shared and fully populated before any actor
	// or the identity registry starts running, so no synchronization
	// is needed once Run() is launched.
	printSection("world")

	senders := make(map[geom.MapPos]chan<- worldmap.Incoming)
	netReg := netio.NewRegistry()
	sink := netio.NewSink(netReg, cfg.World.NineRingCorners, log)
	bus := worldmap.NewBus()
	identReg := identity.New(dispatch.MapSenderAdapter{Senders: senders}, cfg.World.MapMailboxSize, log)

	actorCfg := worldmap.Config{
		TickFloor:         time.Duration(cfg.World.TickFloorMS) * time.Millisecond,
		MailboxSize:       cfg.World.MapMailboxSize,
		ClaimGrace:        time.Duration(cfg.Timers.ClaimGraceMS) * time.Millisecond,
		NineRingCorners:   cfg.World.NineRingCorners,
		AStarNodeBudget:   cfg.Timers.AStarNodeBudget,
		AttackWaitDefault: time.Duration(cfg.Timers.AttackWaitMS) * time.Millisecond,
		DeathRespawnDelay: time.Duration(cfg.Timers.DeathRespawnS) * time.Second,
		BatchCaps: batch.Caps{
			Movement:       cfg.Batch.CapMovement,
			DirectionDeath: cfg.Batch.CapDirectionDeath,
			IDOnly:         cfg.Batch.CapIDOnly,
			NpcSpawn:       cfg.Batch.CapNpcSpawn,
			PlayerSpawn:    cfg.Batch.CapPlayerSpawn,
			Chat:           cfg.Batch.CapChat,
			ItemLoad:       cfg.Batch.CapItemLoad,
		},
	}

	actors := make(map[geom.MapPos]*worldmap.Actor, len(mapData.Positions()))
	for _, pos := range mapData.Positions() {
		grid := worldmap.NewGrid()
		blocked, npcBlocked, masks := mapData.Static(pos)
		grid.LoadStatic(blocked, npcBlocked, masks)

		actor := worldmap.NewActor(pos, grid, actorCfg, bus, senders, sink, identReg, log)
		actor.Portals = portalTable.ForMap(pos)
		actors[pos] = actor
		senders[pos] = actor.Mailbox()
	}

	for _, e := range spawnList {
		pos := geom.MapPos{MX: e.MX, MY: e.MY, Group: e.Group}
		actor, ok := actors[pos]
		if !ok {
			log.Warn("spawn rule references unknown map group", zap.Int32("npc_id", e.NpcID), zap.Int32("mx", e.MX), zap.Int32("my", e.MY), zap.Int32("group", e.Group))
			continue
		}
		factory := npcTable.Factory(e)
		if factory == nil {
			log.Warn("spawn rule references unknown npc template", zap.Int32("npc_id", e.NpcID))
			continue
		}
		actor.Spawners = append(actor.Spawners, &worldmap.SpawnRule{
			Zone:     e.Zone,
			Max:      e.Max,
			Interval: time.Duration(e.IntervalMS) * time.Millisecond,
			Factory:  factory,
		})
	}
	printStat("map actors", len(actors))

	actorStop, cancelActors := context.WithCancel(context.Background())
	defer cancelActors()
	idGroup, idCtx := errgroup.WithContext(actorStop)
	for _, actor := range actors {
		actor := actor
		idGroup.Go(func() error {
			actor.Run()
			return nil
		})
	}
	idGroup.Go(func() error {
		identReg.Run(idCtx.Done())
		return nil
	})
	printOK("map actors started")
	fmt.Println()

	// Route/handler wiring (spec.md §4.7 "G — Login/Dispatch").
	spawnMap := geom.MapPos{MX: 0, MY: 0, Group: 0}
	spawnPos := geom.Position{X: 17, Y: 15, Map: spawnMap}
	vitalMax := [3]int32{100, 40, 0}

	hs := netio.NewHandshakes(
		time.Duration(cfg.Timers.JoinTimeoutS)*time.Second,
		time.Duration(cfg.Timers.ReconnectGraceS)*time.Second,
	)
	router := dispatch.NewRouter(senders, identReg, netReg, hs, accounts, characters, items, logs, shopTable, cfg.Server.ID, spawnMap, spawnPos, vitalMax, log)

	handlerReg := dispatch.NewRegistry(log)
	dispatch.Register(handlerReg)

	printSection("network")
	netServer, err := netio.NewServer(
		fmt.Sprintf("%s:%d", cfg.Network.ListenIP, cfg.Network.ListenPort),
		cfg.Network.InQueueSize,
		cfg.Network.OutQueueSize,
		cfg.Network.MaxFrameBytes,
		cfg.Network.RecvBufferGrowBytes,
		cfg.Network.RecvBufferShrinkBytes,
		log,
	)
	if err != nil {
		return fmt.Errorf("net server: %w", err)
	}
	go netServer.AcceptLoop()
	printOK(fmt.Sprintf("listening on %s", netServer.Addr().String()))

	clock := gameclock.New(bus, netReg,
		time.Duration(cfg.GameClock.RealSecondsPerGameMinute)*time.Second,
		time.Duration(cfg.GameClock.PingIntervalS)*time.Second,
		log,
	)
	clockCtx, cancelClock := context.WithCancel(context.Background())
	defer cancelClock()
	go clock.Run(clockCtx)
	printOK("game clock started")

	acceptCtx, cancelAccept := context.WithCancel(context.Background())
	defer cancelAccept()
	go acceptSessions(acceptCtx, netServer, netReg, router, handlerReg, log)

	fmt.Println()
	printSection("ready")
	printReady(fmt.Sprintf("listening at %s", netServer.Addr().String()))
	fmt.Println()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-shutdownCh
	log.Info("shutdown signal received", zap.String("signal", sig.String()))

	cancelAccept()
	netServer.Shutdown()
	cancelClock()
	cancelActors()
	for _, actor := range actors {
		actor.Stop()
	}
	_ = idGroup.Wait()
	log.Info("server stopped")
	return nil
}

// acceptSessions pumps freshly accepted connections into the session
// registry and spawns one dispatch pump per session (spec.md §4.6/§4.7:
// network I/O stays off the map actor goroutines).
func acceptSessions(ctx context.Context, srv *netio.Server, netReg *netio.Registry, router *dispatch.Router, handlerReg *dispatch.Registry, log *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case sess := <-srv.NewSessions():
			netReg.Add(sess)
			go pumpSession(ctx, router, handlerReg, netReg, sess, log)
		}
	}
}

// pumpSession drains one session's decoded frames through the
// dispatch registry until the connection closes. Session has no
// exported close signal, so liveness is polled on an idle tick rather
// than selected on directly.
func pumpSession(ctx context.Context, router *dispatch.Router, handlerReg *dispatch.Registry, netReg *netio.Registry, sess *netio.Session, log *zap.Logger) {
	defer func() {
		netReg.Remove(sess.ID)
		if sess.AccountID != 0 {
			router.MarkOffline(sess.AccountID)
		}
	}()

	idle := time.NewTicker(500 * time.Millisecond)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case body := <-sess.InQueue:
			if err := handlerReg.Dispatch(router, sess, body); err != nil {
				log.Debug("dispatch error", zap.Error(err), zap.Uint64("session", sess.ID))
			}
		case <-idle.C:
			if sess.IsClosed() {
				return
			}
		}
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
