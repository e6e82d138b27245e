package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config 描述任务日志器的行为
type Config struct {
	// FilePath 为滚动日志文件路径，留空则只写标准错误
	FilePath string
	// Verbose 打开 debug 级别并附带调用位置
	Verbose bool
	// Prefix 显示在每条日志前的进程标识
	Prefix string
}

// New 构造批处理任务使用的结构化日志器：控制台 + 滚动文件双写
func New(cfg Config) (*log.Logger, error) {
	writer := io.Writer(os.Stderr)

	if cfg.FilePath != "" {
		if dir := filepath.Dir(cfg.FilePath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}

		fileWriter := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		writer = io.MultiWriter(os.Stderr, fileWriter)
	}

	level := log.InfoLevel
	if cfg.Verbose {
		level = log.DebugLevel
	}

	return log.NewWithOptions(writer, log.Options{
		ReportCaller:    cfg.Verbose,
		ReportTimestamp: true,
		Level:           level,
		Prefix:          cfg.Prefix,
	}), nil
}
