package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr       string
	Port             string
	DatabasePath     string
	GinMode          string
	RecomputeWorkers int
	RecomputeLogFile string
	ReferenceTZ      string
}

// Load 从环境变量读取应用配置，并为缺失项提供安全的默认值。
func Load() AppConfig {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	listenAddr := strings.TrimSpace(os.Getenv("LISTEN_ADDR"))
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%s", port)
	}

	databasePath := strings.TrimSpace(os.Getenv("DATABASE_PATH"))
	if databasePath == "" {
		databasePath = "strive.db"
	}

	ginMode := strings.TrimSpace(os.Getenv("GIN_MODE"))
	if ginMode == "" {
		ginMode = "release"
	}

	workers := 4
	if raw := strings.TrimSpace(os.Getenv("RECOMPUTE_WORKERS")); raw != "" {
		if val, err := strconv.Atoi(raw); err == nil && val > 0 {
			workers = val
		}
	}

	recomputeLogFile := strings.TrimSpace(os.Getenv("RECOMPUTE_LOG_FILE"))
	if recomputeLogFile == "" {
		recomputeLogFile = "logs/recompute.log"
	}

	referenceTZ := strings.TrimSpace(os.Getenv("REFERENCE_TZ"))
	if referenceTZ == "" {
		referenceTZ = "Local"
	}

	return AppConfig{
		ListenAddr:       listenAddr,
		Port:             port,
		DatabasePath:     databasePath,
		GinMode:          ginMode,
		RecomputeWorkers: workers,
		RecomputeLogFile: recomputeLogFile,
		ReferenceTZ:      referenceTZ,
	}
}

// Location 解析参照时区，解析失败时回退本地时区。
// “今天”在每次计算前由调用方基于该时区解析一次，计算过程中不再读取时钟。
func (c AppConfig) Location() *time.Location {
	if c.ReferenceTZ == "" || strings.EqualFold(c.ReferenceTZ, "Local") {
		return time.Local
	}

	loc, err := time.LoadLocation(c.ReferenceTZ)
	if err != nil {
		return time.Local
	}
	return loc
}
