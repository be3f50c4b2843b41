package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"ductsync/internal/logging"
	"ductsync/internal/parser"
	"ductsync/internal/store"
)

// 环境变量覆盖
const (
	EnvDBPath   = "DUCTSYNC_DB_PATH"
	EnvLogLevel = "DUCTSYNC_LOG_LEVEL"
)

// AppConfig 应用配置
type AppConfig struct {
	Server     ServerConfig     `toml:"server"`
	Data       DataConfig       `toml:"data"`
	Log        LogConfig        `toml:"log"`
	Extraction ExtractionConfig `toml:"extraction"`
	Mapping    MappingConfig    `toml:"mapping"`
	Manifest   store.Manifest   `toml:"manifest"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port    int  `toml:"port"`
	DevMode bool `toml:"dev_mode"`
}

// DataConfig 数据配置
type DataConfig struct {
	DataDir string `toml:"data_dir"`
	DBFile  string `toml:"db_file"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Output string `toml:"output"`
}

// ExtractionConfig 抽取启发式参数
type ExtractionConfig struct {
	BlockEndBlankRows      int     `toml:"block_end_blank_rows"`
	FinishedGoodsBlankRows int     `toml:"finished_goods_blank_rows"`
	HeaderScanRows         int     `toml:"header_scan_rows"`
	HeaderMatchRatio       float64 `toml:"header_match_ratio"`
}

// MappingConfig 映射服务配置
type MappingConfig struct {
	// CacheTTL Go duration 字符串，如 "5m"
	CacheTTL         string `toml:"cache_ttl"`
	IncludeWearLines bool   `toml:"include_wear_lines"`
}

// DefaultConfig 默认配置
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:    20261,
			DevMode: false,
		},
		Data: DataConfig{
			DataDir: "data",
			DBFile:  "ductsync.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Extraction: ExtractionConfig{
			BlockEndBlankRows:      parser.DefaultBlockEndBlankRows,
			FinishedGoodsBlankRows: parser.DefaultFinishedGoodsBlankRows,
		},
		Mapping: MappingConfig{
			CacheTTL: "5m",
		},
	}
}

// ExtractOptions 转换为抽取参数
func (c *AppConfig) ExtractOptions() parser.ExtractOptions {
	return parser.ExtractOptions{
		BlockEndBlankRows:      c.Extraction.BlockEndBlankRows,
		FinishedGoodsBlankRows: c.Extraction.FinishedGoodsBlankRows,
		Finder: parser.FinderOptions{
			HeaderScanRows:   c.Extraction.HeaderScanRows,
			HeaderMatchRatio: c.Extraction.HeaderMatchRatio,
		},
	}
}

// LoggingConfig 转换为日志配置
func (c *AppConfig) LoggingConfig() logging.Config {
	return logging.Config{
		Level:       c.Log.Level,
		Format:      c.Log.Format,
		OutputPath:  c.Log.Output,
		Development: c.Server.DevMode,
	}
}

// CacheTTL 映射缓存有效期；为空或无法解析时返回 0（使用服务默认值）
func (c *AppConfig) CacheTTL() time.Duration {
	d, err := time.ParseDuration(c.Mapping.CacheTTL)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// DBPath 数据库文件路径：环境变量优先，相对路径基于 baseDir
func (c *AppConfig) DBPath(baseDir string) string {
	if v := os.Getenv(EnvDBPath); v != "" {
		return v
	}
	if filepath.IsAbs(c.Data.DBFile) || c.Data.DBFile == ":memory:" {
		return c.Data.DBFile
	}
	return filepath.Join(baseDir, c.Data.DataDir, c.Data.DBFile)
}

// GetExeDir 获取可执行文件所在目录
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// LoadConfig 从可执行文件同目录下的 config.toml 加载配置
func LoadConfig() (*AppConfig, string, error) {
	exeDir, err := GetExeDir()
	if err != nil {
		// 无法获取可执行文件目录，使用当前目录
		exeDir = "."
	}
	cfg, err := LoadFile(filepath.Join(exeDir, "config.toml"))
	return cfg, exeDir, err
}

// LoadFile 从指定路径加载配置；文件不存在时使用默认配置
func LoadFile(path string) (*AppConfig, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	// 环境变量覆盖（用于部署 / 本地运行）
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
	return cfg, nil
}

// SaveConfig 保存配置到 path
func SaveConfig(cfg *AppConfig, path string) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// EnsureDataDir 确保数据目录及导出子目录存在
func EnsureDataDir(cfg *AppConfig, baseDir string) (string, error) {
	dataDir := filepath.Join(baseDir, cfg.Data.DataDir)
	if err := os.MkdirAll(filepath.Join(dataDir, "exports"), 0755); err != nil {
		return "", err
	}
	return dataDir, nil
}
