package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const keyEnv = "ENV"
const envLocal = "local"

const (
	defaultAppDirName   = "buzee-tauri"
	defaultDBName       = "buzee.db"
	defaultIndexDir     = "search_index"
	defaultKVDBName     = "runs.db"
	defaultLogFile      = "buzee.log"
	defaultHost         = "127.0.0.1"
	defaultPort         = "8761"
	defaultSyncInterval = time.Hour
	defaultOCRCommand   = "tesseract"
	defaultRasterizer   = "pdftoppm"
	defaultOCRTimeout   = 2 * time.Minute
)

type Config struct {
	config *viper.Viper
}

func Load(env string) (*Config, error) {

	if len(env) == 0 {
		if env = os.Getenv(keyEnv); len(env) == 0 {
			env = envLocal
		}
	}

	configPath, err := getConfigPath(env)

	viperConfig := viper.New()
	setDefaults(viperConfig)
	if err == nil {
		viperConfig.SetConfigFile(configPath)
		if err := viperConfig.ReadInConfig(); err != nil {
			slog.Warn(fmt.Sprintf("error reading config file, %s", err))
		}
	}
	viperConfig.AutomaticEnv()

	cfg := &Config{
		config: viperConfig,
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.db_name", defaultDBName)
	v.SetDefault("storage.index_dir", defaultIndexDir)
	v.SetDefault("storage.kvdb_name", defaultKVDBName)
	v.SetDefault("server.host", defaultHost)
	v.SetDefault("server.port", defaultPort)
	v.SetDefault("sync.interval", defaultSyncInterval)
	v.SetDefault("sync.enabled", true)
	v.SetDefault("sync.index_history", false)
	v.SetDefault("ocr.command", defaultOCRCommand)
	v.SetDefault("ocr.pdf_rasterizer", defaultRasterizer)
	v.SetDefault("ocr.timeout", defaultOCRTimeout)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", defaultLogFile)
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 28)
}

// Viper exposes the underlying instance so command-line flags can be bound to it.
func (c *Config) Viper() *viper.Viper {
	return c.config
}

func (c *Config) GetHost() string {
	host := c.config.GetString("HOST")
	if len(host) == 0 {
		host = c.config.GetString("server.host")
	}

	return host
}

func (c *Config) GetPort() string {
	port := c.config.GetString("PORT")
	if len(port) == 0 {
		port = c.config.GetString("server.port")
	}

	return port
}

// GetAppDir returns the application directory holding the database, the index and the logs.
func (c *Config) GetAppDir() string {
	appDir := c.config.GetString("APP_DIR")
	if len(appDir) == 0 {
		appDir = c.config.GetString("storage.app_dir")
	}
	if len(appDir) == 0 {
		appDir = filepath.Join(documentsDir(), defaultAppDirName)
	}

	return appDir
}

func (c *Config) GetDBPath() string {
	dbName := c.config.GetString("DB_NAME")
	if len(dbName) == 0 {
		dbName = c.config.GetString("storage.db_name")
	}

	return filepath.Join(c.GetAppDir(), dbName)
}

func (c *Config) GetIndexPath() string {
	indexDir := c.config.GetString("INDEX_DIR")
	if len(indexDir) == 0 {
		indexDir = c.config.GetString("storage.index_dir")
	}

	return filepath.Join(c.GetAppDir(), indexDir)
}

func (c *Config) GetKVDBPath() string {
	kvdbName := c.config.GetString("KVDB_NAME")
	if len(kvdbName) == 0 {
		kvdbName = c.config.GetString("storage.kvdb_name")
	}

	return filepath.Join(c.GetAppDir(), kvdbName)
}

func (c *Config) GetLogFilePath() string {
	logFile := c.config.GetString("LOG_FILE")
	if len(logFile) == 0 {
		logFile = c.config.GetString("logging.file")
	}
	if len(logFile) == 0 {
		return ""
	}
	if filepath.IsAbs(logFile) {
		return logFile
	}

	return filepath.Join(c.GetAppDir(), logFile)
}

func (c *Config) GetLogLevel() string {
	level := c.config.GetString("LOG_LEVEL")
	if len(level) == 0 {
		level = c.config.GetString("logging.level")
	}

	return strings.ToLower(level)
}

func (c *Config) GetLogMaxSizeMB() int {
	return c.config.GetInt("logging.max_size_mb")
}

func (c *Config) GetLogMaxBackups() int {
	return c.config.GetInt("logging.max_backups")
}

func (c *Config) GetLogMaxAgeDays() int {
	return c.config.GetInt("logging.max_age_days")
}

// GetSyncRoots returns the directories walked by every sweep. Defaults to the user home.
func (c *Config) GetSyncRoots() []string {
	roots := splitList(c.config.GetString("SYNC_ROOTS"))
	if len(roots) == 0 {
		roots = c.config.GetStringSlice("sync.roots")
	}
	if len(roots) == 0 {
		if home, err := os.UserHomeDir(); err == nil {
			roots = []string{home}
		}
	}

	return roots
}

func (c *Config) GetSyncInterval() time.Duration {
	interval := c.config.GetDuration("SYNC_INTERVAL")
	if interval == 0 {
		interval = c.config.GetDuration("sync.interval")
	}

	return interval
}

func (c *Config) IsSchedulerEnabled() bool {
	if value := c.config.GetString("SYNC_ENABLED"); len(value) > 0 {
		return c.config.GetBool("SYNC_ENABLED")
	}

	return c.config.GetBool("sync.enabled")
}

func (c *Config) GetForbiddenDirs() []string {
	dirs := splitList(c.config.GetString("FORBIDDEN_DIRS"))
	if len(dirs) == 0 {
		dirs = c.config.GetStringSlice("sync.forbidden_dirs")
	}

	return dirs
}

func (c *Config) IsHistoryIndexingEnabled() bool {
	if value := c.config.GetString("INDEX_HISTORY"); len(value) > 0 {
		return c.config.GetBool("INDEX_HISTORY")
	}

	return c.config.GetBool("sync.index_history")
}

func (c *Config) GetOCRCommand() string {
	command := c.config.GetString("OCR_COMMAND")
	if len(command) == 0 {
		command = c.config.GetString("ocr.command")
	}

	return command
}

func (c *Config) GetPDFRasterizer() string {
	rasterizer := c.config.GetString("PDF_RASTERIZER")
	if len(rasterizer) == 0 {
		rasterizer = c.config.GetString("ocr.pdf_rasterizer")
	}

	return rasterizer
}

func (c *Config) GetOCRTimeout() time.Duration {
	timeout := c.config.GetDuration("OCR_TIMEOUT")
	if timeout == 0 {
		timeout = c.config.GetDuration("ocr.timeout")
	}

	return timeout
}

// GetHistoryHome returns the directory browser profiles are resolved against.
// Empty means the current user's home directory.
func (c *Config) GetHistoryHome() string {
	home := c.config.GetString("HISTORY_HOME")
	if len(home) == 0 {
		home = c.config.GetString("history.home")
	}

	return home
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func documentsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.TempDir()
	}
	return filepath.Join(home, "Documents")
}

func getProjectRoot() (string, error) {
	currentDir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}

	for {
		configDir := filepath.Join(currentDir, "config")
		if info, err := os.Stat(configDir); err == nil && info.IsDir() {
			return currentDir, nil
		}

		parent := filepath.Dir(currentDir)

		if parent == currentDir {
			break
		}

		currentDir = parent
	}

	return "", fmt.Errorf("could not find project root (directory containing 'config' folder)")
}

func getConfigPath(env string) (string, error) {
	configFile := fmt.Sprintf("config.%s.yaml", env)

	projectRoot, err := getProjectRoot()
	if err != nil {
		slog.Warn("failed to find project root with config directory, will use environment variables instead", "err", err.Error())
		return "", fmt.Errorf("failed to find project root: %w", err)
	}
	configPath := filepath.Join(projectRoot, "config", configFile)
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		slog.Warn("failed to find config file within config directory, will use environment variables instead", "err", err.Error())
		return "", fmt.Errorf("config file does not exist: %s", configPath)
	}

	return configPath, nil
}
