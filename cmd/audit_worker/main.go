package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/oksasatya/school-rbac-api/config"
	"github.com/oksasatya/school-rbac-api/internal/infrastructure/messaging"
	pginfra "github.com/oksasatya/school-rbac-api/internal/infrastructure/postgres"
	"github.com/oksasatya/school-rbac-api/pkg/helpers"
)

// audit_worker consumes role events and stores them in role_audit_logs.
func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger := helpers.NewLogger(cfg.AppName+"-audit-worker", cfg.Env, cfg.LogLevel)
	if cfg.RabbitMQURL == "" {
		logger.Info("RABBITMQ_URL not set; audit worker disabled")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pginfra.NewPool(ctx, pginfra.PoolConfig{
		DSN:         cfg.PostgresDSN(),
		AppName:     cfg.AppName + "-audit-worker",
		MaxConns:    cfg.DBMaxConns,
		MinConns:    cfg.DBMinConns,
		MaxConnLife: cfg.DBMaxConnLife,
	})
	if err != nil {
		logger.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatalf("amqp dial: %v", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatalf("amqp channel: %v", err)
	}
	defer func() { _ = ch.Close() }()

	// Prefetch for fair dispatch across workers
	if err := ch.Qos(16, 0, false); err != nil {
		logger.Fatalf("qos: %v", err)
	}
	if err := helpers.DeclareQueue(ch, cfg.RabbitMQRoleEventsQueue); err != nil {
		logger.Fatalf("queue declare: %v", err)
	}
	msgs, err := ch.Consume(cfg.RabbitMQRoleEventsQueue, "", false, false, false, false, nil)
	if err != nil {
		logger.Fatalf("consume: %v", err)
	}

	consumer := messaging.NewAuditConsumer(pginfra.NewAuditRepository(pool), logger)
	logger.Infof("audit worker consuming %s", cfg.RabbitMQRoleEventsQueue)
	consumer.Run(ctx, msgs)
	logger.Info("audit worker stopped")
}
