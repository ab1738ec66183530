package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/FindOutRent/FindOutRent/internal/account"
	"github.com/FindOutRent/FindOutRent/internal/common/config"
	"github.com/FindOutRent/FindOutRent/internal/common/db"
	"github.com/FindOutRent/FindOutRent/internal/common/logger"
	"github.com/FindOutRent/FindOutRent/internal/common/middleware"
	"github.com/FindOutRent/FindOutRent/internal/common/server"
	"github.com/FindOutRent/FindOutRent/internal/common/tracing"
	"github.com/FindOutRent/FindOutRent/internal/imagestore"
	"github.com/FindOutRent/FindOutRent/internal/schedule"
	"github.com/FindOutRent/FindOutRent/internal/vehicle"
	"github.com/gin-gonic/gin"
)

var (
	configPath  = flag.String("config", "configs/rental-service.json", "配置文件路径")
	consulKey   = flag.String("config-consul-key", "", "从 Consul KV 读取配置的 key（优先于本地文件）")
	consulAddr  = flag.String("config-consul-host", "localhost", "配置所在 Consul 的地址")
	consulCPort = flag.Int("config-consul-port", 8500, "配置所在 Consul 的端口")
)

func main() {
	flag.Parse()

	// 加载配置：优先 Consul KV，其次本地文件
	var cfg *config.Config
	var err error
	if *consulKey != "" {
		cfg, err = config.LoadConfigFromConsulKV(*consulAddr, *consulCPort, *consulKey)
	} else {
		cfg, err = config.LoadConfig(*configPath)
	}
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 初始化日志
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output, cfg.Log.Path)
	if err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}

	// 初始化链路追踪（tracer 注册为全局，这里只保留 closer）
	_, closer, err := tracing.InitTracer(
		cfg.Server.Name,
		cfg.Jaeger.Endpoint,
		cfg.Jaeger.Sampler,
	)
	if err != nil {
		log.Warnf("failed to init tracer: %v", err)
	} else {
		defer closer.Close()
	}

	// 初始化数据库并迁移
	gdb, err := db.Open(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	if err := db.Migrate(gdb,
		&account.Account{},
		&vehicle.Vehicle{},
		&vehicle.VehicleImage{},
		&schedule.Schedule{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	// 图片存储
	images, err := imagestore.New(cfg.Media.Dir, cfg.Server.SiteURL+cfg.Media.BaseURL)
	if err != nil {
		log.Fatalf("failed to init image store: %v", err)
	}

	// 组装业务
	accounts := account.NewService(account.NewRepo(gdb))
	vehicles := vehicle.NewService(vehicle.NewRepo(gdb))
	engine := schedule.NewEngine(schedule.NewRepo(gdb))

	accountHandler := account.NewHandler(accounts, cfg.Auth, log)
	vehicleHandler := vehicle.NewHandler(vehicles, accounts, images, log)
	scheduleHandler := schedule.NewHandler(engine, log)

	// 列表读路径共用一个熔断器：存储持续出错时快速失败
	listBreaker := middleware.NewCircuitBreaker("listings", 5, 30*time.Second)
	listGuard := server.Breaker(listBreaker)

	if err := server.RunHTTPServer(cfg, log, func(r *gin.Engine) error {
		r.GET("/api/hello", func(c *gin.Context) {
			c.JSON(200, gin.H{"message": "Hello from FindOutRent!"})
		})
		r.Static(cfg.Media.BaseURL, images.Dir())

		accountHandler.Register(r, listGuard)
		vehicleHandler.Register(r, listGuard)
		scheduleHandler.Register(r, listGuard)
		return nil
	}); err != nil {
		log.Fatalf("rental-service exited with error: %v", err)
	}
}
