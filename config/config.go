package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"
	"github.com/virtue186/fortesting/core"
	"github.com/virtue186/fortesting/crypto"
	"github.com/virtue186/fortesting/node"
	"github.com/virtue186/fortesting/types"
	"gopkg.in/yaml.v3"
)

// Config 是节点的完整配置，对应 node.yml
type Config struct {
	Node    NodeConfig    `yaml:"node"`
	Genesis GenesisConfig `yaml:"genesis"`
	Log     LogConfig     `yaml:"log"`
}

type NodeConfig struct {
	// DataDir 为空时使用内存存储
	DataDir    string        `yaml:"data_dir"`
	ListenAddr string        `yaml:"listen_addr"`
	BlockTime  time.Duration `yaml:"block_time"`
	AutoMine   bool          `yaml:"auto_mine"`
	// SealerKey 是出块私钥的十六进制形式，为空时随机生成
	SealerKey string `yaml:"sealer_key"`
}

type GenesisConfig struct {
	Timestamp int64 `yaml:"timestamp"`
	// DevAccounts 个由 crypto.DevKey 派生的账户在创世时各获得 DevBalance
	DevAccounts int    `yaml:"dev_accounts"`
	DevBalance  string `yaml:"dev_balance"`
	// Alloc 地址 -> 十进制 wei 金额
	Alloc map[string]string `yaml:"alloc"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default 返回开发链的默认配置
func Default() Config {
	return Config{
		Node: NodeConfig{
			ListenAddr: ":8545",
			BlockTime:  time.Second,
			AutoMine:   true,
		},
		Genesis: GenesisConfig{
			DevAccounts: 4,
			DevBalance:  types.FormatAmount(types.Ether(1000)),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "logfmt",
		},
	}
}

// Load 读取 YAML 配置文件，未出现的字段保留默认值
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if !c.Node.AutoMine && c.Node.BlockTime <= 0 {
		return fmt.Errorf("node.block_time must be positive when auto_mine is off")
	}
	if c.Genesis.DevAccounts < 0 {
		return fmt.Errorf("genesis.dev_accounts must not be negative")
	}
	if _, err := c.Genesis.Build(); err != nil {
		return err
	}
	if _, err := c.Node.PrivateKey(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "logfmt", "json":
	default:
		return fmt.Errorf("unknown log.format %q", c.Log.Format)
	}
	if _, err := c.Log.filter(); err != nil {
		return err
	}
	return nil
}

func (c NodeConfig) PrivateKey() (*crypto.PrivateKey, error) {
	if c.SealerKey == "" {
		return nil, nil
	}
	key, err := crypto.NewPrivateKeyFromHex(c.SealerKey)
	if err != nil {
		return nil, fmt.Errorf("invalid node.sealer_key: %w", err)
	}
	return &key, nil
}

// Storage 根据 DataDir 打开存储
func (c NodeConfig) Storage() (core.Storage, error) {
	if c.DataDir == "" {
		return core.NewMemoryStorage(), nil
	}
	return core.NewLeveldbStorage(c.DataDir)
}

// Build 生成创世配置
func (g GenesisConfig) Build() (*core.Genesis, error) {
	alloc := make(map[types.Address]*uint256.Int)
	if g.DevAccounts > 0 {
		balance, err := types.ParseAmount(g.DevBalance)
		if err != nil {
			return nil, fmt.Errorf("invalid genesis.dev_balance: %w", err)
		}
		for i := 0; i < g.DevAccounts; i++ {
			alloc[crypto.DevKey(i).PublicKey().Address()] = balance
		}
	}
	for addrHex, amount := range g.Alloc {
		addr, err := types.AddressFromHex(addrHex)
		if err != nil {
			return nil, fmt.Errorf("invalid genesis.alloc address %q: %w", addrHex, err)
		}
		balance, err := types.ParseAmount(amount)
		if err != nil {
			return nil, fmt.Errorf("invalid genesis.alloc amount for %s: %w", addrHex, err)
		}
		alloc[addr] = balance
	}
	return &core.Genesis{Timestamp: g.Timestamp, Alloc: alloc}, nil
}

func (l LogConfig) filter() (level.Option, error) {
	switch l.Level {
	case "debug":
		return level.AllowDebug(), nil
	case "info", "":
		return level.AllowInfo(), nil
	case "warn":
		return level.AllowWarn(), nil
	case "error":
		return level.AllowError(), nil
	}
	return nil, fmt.Errorf("unknown log.level %q", l.Level)
}

// NewLogger 按配置创建 go-kit logger
func (l LogConfig) NewLogger(w io.Writer) (log.Logger, error) {
	opt, err := l.filter()
	if err != nil {
		return nil, err
	}
	var logger log.Logger
	if l.Format == "json" {
		logger = log.NewJSONLogger(log.NewSyncWriter(w))
	} else {
		logger = log.NewLogfmtLogger(log.NewSyncWriter(w))
	}
	logger = level.NewFilter(logger, opt)
	return log.With(logger, "ts", log.DefaultTimestampUTC), nil
}

// LogrusLevel 返回 CLI 输出使用的 logrus 级别
func (l LogConfig) LogrusLevel() logrus.Level {
	lvl, err := logrus.ParseLevel(l.Level)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// NodeOpts 把配置转换为 node.NodeOpts，调用方负责关闭返回的存储
func (c Config) NodeOpts(logger log.Logger, registry *core.Registry) (node.NodeOpts, error) {
	genesis, err := c.Genesis.Build()
	if err != nil {
		return node.NodeOpts{}, err
	}
	key, err := c.Node.PrivateKey()
	if err != nil {
		return node.NodeOpts{}, err
	}
	storage, err := c.Node.Storage()
	if err != nil {
		return node.NodeOpts{}, err
	}
	return node.NodeOpts{
		Logger:        logger,
		Storage:       storage,
		Registry:      registry,
		Genesis:       genesis,
		PrivateKey:    key,
		BlockTime:     c.Node.BlockTime,
		AutoMine:      c.Node.AutoMine,
		APIListenAddr: c.Node.ListenAddr,
	}, nil
}
