package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sharetube/jamroom/internal/controller"
	"github.com/sharetube/jamroom/internal/hub"
	connInmemory "github.com/sharetube/jamroom/internal/repository/connection/inmemory"
	repository "github.com/sharetube/jamroom/internal/repository/room"
	roomInmemory "github.com/sharetube/jamroom/internal/repository/room/inmemory"
	roomRedis "github.com/sharetube/jamroom/internal/repository/room/redis"
	"github.com/sharetube/jamroom/internal/service/room"
	"github.com/sharetube/jamroom/pkg/ctxlogger"
	"github.com/sharetube/jamroom/pkg/redisclient"
	"github.com/sharetube/jamroom/pkg/validator"
)

const (
	DirectoryMemory = "memory"
	DirectoryRedis  = "redis"
)

type AppConfig struct {
	Host           string        `json:"host" validate:"required"`
	Port           int           `json:"port" validate:"min=1,max=65535"`
	LogLevel       string        `json:"log_level" validate:"oneof=DEBUG INFO WARN ERROR"`
	AllowedOrigins []string      `json:"allowed_origins" validate:"min=1"`
	SyncStrategy   string        `json:"sync_strategy" validate:"oneof=targeted broadcast"`
	CodeAttempts   int           `json:"code_attempts" validate:"min=1"`
	SendBuffer     int           `json:"send_buffer" validate:"min=1"`
	ReadLimit      int64         `json:"read_limit" validate:"min=512"`
	Directory      string        `json:"directory" validate:"oneof=memory redis"`
	RedisHost      string        `json:"redis_host" validate:"required_if=Directory redis"`
	RedisPort      int           `json:"redis_port" validate:"min=0,max=65535"`
	RedisPassword  string        `json:"-"`
	RedisTimeout   time.Duration `json:"redis_timeout" validate:"gte=10ms,lte=5s"`
}

func (cfg *AppConfig) Validate() error {
	cfg.LogLevel = strings.ToUpper(cfg.LogLevel)
	if errs, ok := validator.NewValidator().Validate(cfg); !ok {
		return fmt.Errorf("invalid config: %w", validator.Join(errs))
	}

	return nil
}

type iRoomRepo interface {
	SetHost(context.Context, *repository.SetHostParams) error
	GetHost(ctx context.Context, roomId string) (string, error)
	RemoveRoom(ctx context.Context, roomId string) error
	GetRoomIdByHost(ctx context.Context, hostId string) (string, error)
	Count(ctx context.Context) (int, error)
}

func newLogger(level string) (*slog.Logger, error) {
	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	return slog.New(&h), nil
}

// newRoomRepo picks the room directory backend. The returned func releases it.
func newRoomRepo(ctx context.Context, cfg *AppConfig, logger *slog.Logger) (iRoomRepo, func(), error) {
	if cfg.Directory != DirectoryRedis {
		return roomInmemory.NewRepo(logger), func() {}, nil
	}

	rc, err := redisclient.NewRedisClient(ctx, &redisclient.Config{
		Port:     cfg.RedisPort,
		Host:     cfg.RedisHost,
		Password: cfg.RedisPassword,
		Timeout:  cfg.RedisTimeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create redis client: %w", err)
	}

	namespace := "jamroom:" + uuid.NewString()
	logger.InfoContext(ctx, "using redis room directory", "namespace", namespace)

	repo := roomRedis.NewRepo(rc, namespace, logger)
	release := func() {
		if err := repo.Clear(context.Background()); err != nil {
			logger.Error("failed to clear redis room directory", "namespace", namespace, "error", err)
		}

		rc.Close()
	}

	return repo, release, nil
}

func Run(ctx context.Context, cfg *AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}

	roomRepo, closeRoomRepo, err := newRoomRepo(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRoomRepo()

	syncStrategy, err := room.ParseSyncStrategy(cfg.SyncStrategy)
	if err != nil {
		return err
	}

	h := hub.New(connInmemory.NewRepo(logger), &hub.Config{
		SendBuffer: cfg.SendBuffer,
		ReadLimit:  cfg.ReadLimit,
	}, logger)
	roomService := room.NewService(roomRepo, h, &room.Config{
		SyncStrategy: syncStrategy,
		CodeAttempts: cfg.CodeAttempts,
	}, logger)
	controller := controller.NewController(roomService, h, &controller.Config{
		AllowedOrigins: cfg.AllowedOrigins,
	}, logger)
	h.SetHandler(controller)
	h.OnDisconnecting(controller.Disconnecting)
	h.OnDisconnect(controller.Disconnect)

	hubCtx, stopHub := context.WithCancel(ctx)
	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		h.Run(hubCtx)
	}()

	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: controller.GetMux()}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		shutdownCtx, c := context.WithTimeout(serverCtx, 30*time.Second)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		stopHub()
		<-hubDone

		err := server.Shutdown(shutdownCtx)
		if err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server",
		"address", server.Addr,
		"sync_strategy", roomService.SyncStrategyName(),
		"directory", cfg.Directory,
	)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		stopHub()
		return err
	}

	<-serverCtx.Done()

	if rooms, err := roomRepo.Count(context.Background()); err == nil {
		logger.Info("server stopped", "open_rooms", rooms)
	}

	return nil
}
