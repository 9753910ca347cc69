package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"umbra/domain/venue"
)

// Config carries everything the engine needs at bootstrap. Pool and
// settlement tables are static lookup data from the engine's point of
// view; changing them means restarting.
type Config struct {
	Engine struct {
		// Engine-wide notional clamp applied on top of per-pool bounds.
		MinOrderSize decimal.Decimal `yaml:"min_order_size"`
		MaxOrderSize decimal.Decimal `yaml:"max_order_size"`
		FeedBuffer   uint64          `yaml:"feed_buffer"`
	} `yaml:"engine"`

	Pools []PoolConfig `yaml:"pools"`

	// Symbols maps symbol -> asset class. Unlisted symbols fall back to
	// DefaultAssetClass.
	Symbols           map[string]string `yaml:"symbols"`
	DefaultAssetClass string            `yaml:"default_asset_class"`

	// SettlementSupport maps asset class -> allowed settlement cycles.
	SettlementSupport map[string][]string `yaml:"settlement_support"`

	WAL struct {
		EntryDir            string `yaml:"entry_dir"`
		ExitDir             string `yaml:"exit_dir"`
		SegmentSize         int64  `yaml:"segment_size"`
		SnapshotDir         string `yaml:"snapshot_dir"`
		SnapshotIntervalSec int    `yaml:"snapshot_interval_sec"`
	} `yaml:"wal"`

	Kafka struct {
		Brokers         []string `yaml:"brokers"`
		ExecutionsTopic string   `yaml:"executions_topic"`
		FeedTopic       string   `yaml:"feed_topic"`
	} `yaml:"kafka"`

	GRPC struct {
		Addr string `yaml:"addr"`
	} `yaml:"grpc"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

type PoolConfig struct {
	ID          string          `yaml:"id"`
	Name        string          `yaml:"name"`
	Capacity    decimal.Decimal `yaml:"capacity"`
	MinNotional decimal.Decimal `yaml:"min_notional"`
	MaxNotional decimal.Decimal `yaml:"max_notional"`
	MakerFee    decimal.Decimal `yaml:"maker_fee"`
	TakerFee    decimal.Decimal `yaml:"taker_fee"`
	Privacy     string          `yaml:"privacy"`
	Settlement  string          `yaml:"settlement"`

	// Participants seeded at bootstrap; membership can only grow.
	Participants []string `yaml:"participants"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.GRPC.Addr == "" {
		c.GRPC.Addr = ":50051"
	}
	if c.WAL.SegmentSize == 0 {
		c.WAL.SegmentSize = 2 << 20
	}
	if c.Engine.FeedBuffer == 0 {
		c.Engine.FeedBuffer = 1 << 14
	}
	if c.DefaultAssetClass == "" {
		c.DefaultAssetClass = "equity"
	}
}

func (c *Config) Validate() error {
	if len(c.Pools) == 0 {
		return fmt.Errorf("at least one pool is required")
	}
	seen := make(map[string]bool, len(c.Pools))
	for _, p := range c.Pools {
		if p.ID == "" {
			return fmt.Errorf("pool with empty id")
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate pool id %q", p.ID)
		}
		seen[p.ID] = true

		if _, err := venue.ParsePrivacyLevel(p.Privacy); err != nil {
			return fmt.Errorf("pool %q: %w", p.ID, err)
		}
		if _, err := venue.ParseSettlementType(p.Settlement); err != nil {
			return fmt.Errorf("pool %q: %w", p.ID, err)
		}
		if p.MakerFee.IsNegative() || p.TakerFee.IsNegative() {
			return fmt.Errorf("pool %q: negative fee rate", p.ID)
		}
		if !p.Capacity.IsPositive() {
			return fmt.Errorf("pool %q: capacity must be positive", p.ID)
		}
		if p.MinNotional.GreaterThan(p.MaxNotional) {
			return fmt.Errorf("pool %q: min notional above max", p.ID)
		}
	}

	for class, cycles := range c.SettlementSupport {
		for _, cy := range cycles {
			if _, err := venue.ParseSettlementType(cy); err != nil {
				return fmt.Errorf("settlement support for %q: %w", class, err)
			}
		}
	}

	if c.Engine.MinOrderSize.GreaterThan(c.Engine.MaxOrderSize) && c.Engine.MaxOrderSize.IsPositive() {
		return fmt.Errorf("engine min_order_size above max_order_size")
	}
	return nil
}

// overrideWithEnv lets deployment override addresses without editing
// the file.
func overrideWithEnv(cfg *Config) {
	if v := os.Getenv("UMBRA_GRPC_ADDR"); v != "" {
		cfg.GRPC.Addr = v
	}
	if v := os.Getenv("UMBRA_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
}
