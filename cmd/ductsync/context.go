package main

import (
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"ductsync/internal/config"
	"ductsync/internal/importer"
	"ductsync/internal/logging"
	"ductsync/internal/service/bom"
	"ductsync/internal/service/excel"
	"ductsync/internal/service/mapping"
	"ductsync/internal/store"
)

type commandContext struct {
	configFlag *string
	dbFlag     *string

	configOnce sync.Once
	config     *config.AppConfig
	baseDir    string
	configErr  error
}

func newCommandContext(configFlag, dbFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		dbFlag:     dbFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.AppConfig, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		if path == "" {
			c.config, c.baseDir, c.configErr = config.LoadConfig()
			return
		}
		c.baseDir = filepath.Dir(path)
		c.config, c.configErr = config.LoadFile(path)
	})
	return c.config, c.configErr
}

func (c *commandContext) dbPath(cfg *config.AppConfig) string {
	if c.dbFlag != nil && strings.TrimSpace(*c.dbFlag) != "" {
		return strings.TrimSpace(*c.dbFlag)
	}
	return cfg.DBPath(c.baseDir)
}

// app 一次命令运行所需的服务
type app struct {
	cfg         *config.AppConfig
	logger      *zap.Logger
	store       *store.Store
	rows        store.RowStore
	parser      *excel.Parser
	mapping     *mapping.Service
	processor   *bom.Processor
	coordinator *importer.Coordinator
	exportDir   string
}

func (c *commandContext) openApp() (*app, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.LoggingConfig())
	if err != nil {
		return nil, err
	}
	st, err := store.New(c.dbPath(cfg))
	if err != nil {
		return nil, err
	}

	// 映射服务内部按清单转换；BOM 行写入同样经过清单
	rows := store.NewMapped(st, &cfg.Manifest)
	svc := mapping.NewService(st, &cfg.Manifest, mapping.Options{TTL: cfg.CacheTTL(), Logger: logger})
	proc := bom.NewProcessor(svc, rows, bom.ProcessorOptions{
		Generator: bom.GeneratorOptions{IncludeWear: cfg.Mapping.IncludeWearLines},
		Logger:    logger,
	})
	p := excel.NewParser(excel.Options{Extract: cfg.ExtractOptions(), Logger: logger})

	exportDir := filepath.Join(c.baseDir, cfg.Data.DataDir, "exports")
	if dataDir, err := config.EnsureDataDir(cfg, c.baseDir); err == nil {
		exportDir = filepath.Join(dataDir, "exports")
	}

	return &app{
		cfg:         cfg,
		logger:      logger,
		store:       st,
		rows:        rows,
		parser:      p,
		mapping:     svc,
		processor:   proc,
		coordinator: importer.NewCoordinator(p, proc, st, logger),
		exportDir:   exportDir,
	}, nil
}

func (a *app) Close() {
	_ = a.logger.Sync()
	_ = a.store.Close()
}
