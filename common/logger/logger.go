package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	glog "github.com/Laisky/go-utils/v5/log"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/adcanvas/adcanvas/common/config"
)

var (
	// LogDir is the directory for file logs; empty keeps logs on stdout/stderr only.
	LogDir string

	Logger       glog.Logger
	setupLogOnce sync.Once
	initLogOnce  sync.Once
)

// init initializes the logger automatically when the package is imported
func init() {
	initLogger()
}

// initLogger initializes the go-utils logger
func initLogger() {
	initLogOnce.Do(func() {
		var err error
		level := glog.LevelInfo
		if config.DebugEnabled {
			level = glog.LevelDebug
		}

		Logger, err = glog.NewConsoleWithName("adcanvas", level)
		if err != nil {
			panic(fmt.Sprintf("failed to create logger: %+v", err))
		}
	})
}

// SetupLogger redirects gin's writers into the log directory when one is configured
// and enriches the global logger with the host name.
func SetupLogger() {
	setupLogOnce.Do(func() {
		if LogDir != "" {
			var logPath string
			if config.OnlyOneLogFile {
				logPath = filepath.Join(LogDir, "adcanvas.log")
			} else {
				logPath = filepath.Join(LogDir, fmt.Sprintf("adcanvas-%s.log", time.Now().Format("20060102")))
			}
			fd, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
			if err != nil {
				log.Fatal("failed to open log file")
			}
			gin.DefaultWriter = io.MultiWriter(os.Stdout, fd)
			gin.DefaultErrorWriter = io.MultiWriter(os.Stderr, fd)
		}

		hostname, err := os.Hostname()
		if err != nil {
			Logger.Panic("get hostname", zap.Error(err))
		}
		Logger = Logger.With(zap.String("host", hostname))

		if config.DebugEnabled {
			_ = Logger.ChangeLevel("debug")
			Logger.Info("running in debug mode")
		}
	})
}
