package container

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/school-rbac-api/config"
	"github.com/oksasatya/school-rbac-api/internal/infrastructure/messaging"
	"github.com/oksasatya/school-rbac-api/internal/infrastructure/metrics"
	"github.com/oksasatya/school-rbac-api/pkg/helpers"
)

// app-level container to share constructed components across packages
// Router can auto-wire modules from these singletons.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	pgPool      *pgxpool.Pool
	redisClient *redis.Client
	jwtManager  *helpers.JWTManager
	promMetrics *metrics.Metrics

	roleEvents *messaging.RoleEventPublisher
)

func SetConfig(c *config.Config)   { cfg = c }
func GetConfig() *config.Config    { return cfg }
func SetLogger(l *logrus.Logger)   { logger = l }
func GetLogger() *logrus.Logger    { return logger }
func SetPGPool(p *pgxpool.Pool)    { pgPool = p }
func GetPGPool() *pgxpool.Pool     { return pgPool }
func SetRedis(r *redis.Client)     { redisClient = r }
func GetRedis() *redis.Client      { return redisClient }
func SetJWT(m *helpers.JWTManager) { jwtManager = m }
func GetJWT() *helpers.JWTManager  { return jwtManager }

func SetMetrics(m *metrics.Metrics) { promMetrics = m }

// GetMetrics may return nil when metrics are disabled; *metrics.Metrics methods accept nil.
func GetMetrics() *metrics.Metrics { return promMetrics }

func SetRoleEvents(p *messaging.RoleEventPublisher) { roleEvents = p }

// GetRoleEvents returns nil when RabbitMQ is not configured.
func GetRoleEvents() *messaging.RoleEventPublisher { return roleEvents }
