package ftsearch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const defaultReadinessTimeout = 10 * time.Second

// Driver names accepted by New and Dial.
const (
	DriverRedis   = "redis"   // rueidis
	DriverGoRedis = "goredis" // go-redis/v9
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver   string
	addrs    []string
	username string
	password string
	db       int
	poolSize int

	readinessTimeout time.Duration

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

func newClientConfig(opts []Option) *clientConfig {
	cfg := &clientConfig{
		driver:           DriverRedis,
		readinessTimeout: defaultReadinessTimeout,
	}
	for _, o := range opts {
		o.apply(cfg)
	}
	return cfg
}

func (c *clientConfig) dialConfig() DialConfig {
	return DialConfig{
		Driver:   c.driver,
		Addrs:    c.addrs,
		Username: c.username,
		Password: c.password,
		DB:       c.db,
		PoolSize: c.poolSize,
	}
}

// WithRedis connects through rueidis. This is the default driver.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = DriverRedis
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithGoRedis connects through go-redis/v9.
func WithGoRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = DriverGoRedis
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithUsername sets the ACL user name.
func WithUsername(username string) Option {
	return optionFunc(func(c *clientConfig) {
		c.username = username
	})
}

// WithDB selects a logical database.
func WithDB(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.db = n
	})
}

// WithPoolSize caps the driver's connection pool. Default: driver default.
func WithPoolSize(n int) Option {
	return optionFunc(func(c *clientConfig) {
		if n > 0 {
			c.poolSize = n
		}
	})
}

// WithReadinessTimeout bounds how long New waits for the server to answer PING.
// Default: 10s.
func WithReadinessTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		if d > 0 {
			c.readinessTimeout = d
		}
	})
}

// WithLogger enables structured logging of commands.
// Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers client metrics (command counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
