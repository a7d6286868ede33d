package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"corebank/internal/config"
	"corebank/internal/customer"
	"corebank/internal/handler"
	"corebank/internal/infrastructure/cache"
	"corebank/internal/infrastructure/database"
	"corebank/internal/infrastructure/lock"
	"corebank/internal/infrastructure/mq"
	"corebank/internal/job"
	"corebank/internal/ledger"
	"corebank/internal/observability"
	"corebank/internal/repository"
	"corebank/internal/service"
	"corebank/internal/storage/flatfile"
)

func main() {
	// 加载配置
	cfg := config.LoadConfig("config/config.yaml")

	policies, err := cfg.Ledger.Policy.Policies()
	if err != nil {
		log.Fatalf("账户策略配置错误: %v", err)
	}

	// 文本文件和快照表是两份独立的持久化数据，同时在启动时载入会把同一批流水读两遍
	if cfg.Ledger.FlatFile.Enabled && cfg.Ledger.FlatFile.LoadOnStart &&
		cfg.MySQL.Enabled && cfg.Ledger.Snapshot.Enabled && cfg.Ledger.Snapshot.LoadOnStart {
		log.Fatalf("ledger.flatfile.load_on_start 与 ledger.snapshot.load_on_start 只能开启一个")
	}

	metrics := observability.NewMetrics()

	// 创建上下文（用于优雅关闭），后台任务挂在 jobs 上
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	jobs, jobCtx := errgroup.WithContext(ctx)

	// 初始化 Redis
	var idem service.IdempotencyStore
	var snapshotLock *lock.DistributedLock
	if cfg.Redis.Enabled {
		redisClient := cache.InitRedis(&cfg.Redis)
		defer redisClient.Close()
		idem = cache.NewIdempotencyStore(redisClient, "ledger:transfer:req:", cfg.Business.IdempotencyTTL())
		snapshotLock = lock.NewSnapshotLock(redisClient, max(2*cfg.Ledger.Snapshot.Interval(), time.Minute))
	}

	// 初始化 MySQL：快照表 + 本地消息表
	var db *gorm.DB
	var opsService *service.OpsService
	if cfg.MySQL.Enabled {
		db = database.InitMySQL(&cfg.MySQL)
		opsService = service.NewOpsService(repository.NewAccountRepository(db),
			repository.NewTransactionRepository(db), repository.NewOutboxRepository(db))
	}

	// 初始化 Kafka，流水事件经本地消息表投递
	ledgerOpts := []ledger.Option{ledger.WithPolicies(policies)}
	var producer *mq.Producer
	if cfg.Kafka.Enabled {
		if db == nil {
			log.Fatalf("kafka.enabled 需要同时开启 mysql.enabled（本地消息表）")
		}
		producer, err = mq.InitKafka(&cfg.Kafka)
		if err != nil {
			log.Fatalf("%v", err)
		}
		outboxRepo := repository.NewOutboxRepository(db)
		// 在账户锁内写 outbox，同一账户的消息按流水号顺序落库
		publisher := service.NewOutboxPublisher(outboxRepo, cfg.Kafka.Topic.LedgerEntry)
		ledgerOpts = append(ledgerOpts, ledger.WithAppendHook(service.PublishHook(publisher, 3*time.Second)))

		outboxSender := job.NewOutboxSender(outboxRepo, producer, metrics,
			cfg.Business.OutboxInterval(), cfg.Business.OutboxBatchSize, cfg.Business.MaxRetryCount)
		jobs.Go(func() error {
			outboxSender.Start(jobCtx)
			return nil
		})

		compensateJob := job.NewOutboxCompensateJob(outboxRepo, metrics,
			cfg.Business.CompensateInterval(), cfg.Business.CompensateCooldown(), cfg.Business.OutboxBatchSize)
		jobs.Go(func() error {
			compensateJob.Start(jobCtx)
			return nil
		})
	}
	defer producer.Close()

	// 内存账本与客户目录
	l := ledger.New(ledgerOpts...)
	directory := customer.NewDirectory()

	// 文本文件数据集
	var store *flatfile.Store
	if cfg.Ledger.FlatFile.Enabled {
		store = flatfile.NewStore(cfg.Ledger.FlatFile.Dir)
		if cfg.Ledger.FlatFile.LoadOnStart && store.Exists() {
			counts, err := store.Load(directory, l)
			if err != nil {
				log.Fatalf("加载数据集失败: %v", err)
			}
			log.Printf("数据集加载完成: customers=%d, accounts=%d, transactions=%d",
				counts.Customers, counts.Accounts, counts.Transactions)
		}
	}

	// 快照表
	var snapshotJob *job.SnapshotJob
	if db != nil && cfg.Ledger.Snapshot.Enabled {
		snapshotJob = job.NewSnapshotJob(db, l, snapshotLock, metrics, cfg.Ledger.Snapshot.Interval())
		if cfg.Ledger.Snapshot.LoadOnStart {
			if _, _, err := snapshotJob.Restore(ctx, directory); err != nil {
				log.Fatalf("从快照恢复失败: %v", err)
			}
		}
		jobs.Go(func() error {
			snapshotJob.Start(jobCtx)
			return nil
		})
	}

	metrics.RegisterGauge("corebank_ledger_accounts", "Number of open ledger accounts.",
		func() float64 { return float64(l.Registry().Len()) })
	metrics.RegisterGauge("corebank_ledger_entries", "Number of entries in the transaction log.",
		func() float64 { return float64(l.Log().Len()) })

	// 设置路由
	h := handler.NewHandler(
		service.NewCustomerService(directory),
		service.NewAccountService(l, directory, metrics),
		service.NewTransferService(l, idem, metrics),
		opsService,
	)
	router := handler.SetupRouter(h, metrics, cfg.Server.Mode)

	// 启动 HTTP 服务
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// 在 goroutine 中启动服务器
	go func() {
		log.Printf("服务启动，监听端口: %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("服务启动失败: %v", err)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("正在关闭服务...")

	// 先停 HTTP，不再接受新的记账请求（等待最多5秒）
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("服务关闭异常: %v", err)
	}

	// 取消上下文，等待后台任务退出
	cancel()
	_ = jobs.Wait()

	// 最后一次快照
	if snapshotJob != nil {
		if _, err := snapshotJob.RunOnce(shutdownCtx); err != nil {
			log.Printf("关闭前快照失败: %v", err)
		}
	}

	if store != nil && cfg.Ledger.FlatFile.SaveOnStop {
		counts, err := store.Save(directory, l)
		if err != nil {
			log.Printf("保存数据集失败: %v", err)
		} else {
			log.Printf("数据集已保存: customers=%d, accounts=%d, transactions=%d",
				counts.Customers, counts.Accounts, counts.Transactions)
		}
	}

	log.Println("服务已关闭")
}
