package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lk2023060901/xdooria-gacha/pkg/config"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，GACHA_LOG_LEVEL -> log.level
const EnvPrefix = "GACHA"

var (
	configPath string
	logPath    string
)

// LoadConfig 加载进程配置并返回管理器，调用方可以继续用它监听文件变更
// 优先级：命令行参数 > 环境变量 > 配置文件 > 默认值
func LoadConfig(target any, opts ...config.Option) (config.Manager, error) {
	execDir, err := GetExecDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable directory: %w", err)
	}

	if pflag.Lookup("config") == nil {
		pflag.StringVarP(&configPath, "config", "c", filepath.Join(execDir, "config.yaml"), "path to config file")
	}
	if pflag.Lookup("log.path") == nil {
		pflag.StringVar(&logPath, "log.path", "", "override log output path")
	}
	if !pflag.Parsed() {
		pflag.Parse()
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	// --config 未显式指定时允许 GACHA_CONFIG 覆盖
	finalPath := configPath
	if !pflag.CommandLine.Changed("config") {
		if env := os.Getenv(EnvPrefix + "_CONFIG"); env != "" {
			finalPath = env
		}
	}
	if _, err := os.Stat(finalPath); err != nil {
		return nil, fmt.Errorf("config file not found at %s: %w", finalPath, err)
	}
	configPath = finalPath

	if pflag.CommandLine.Changed("log.path") {
		v.Set("log.output_path", logPath)
		v.Set("log.enable_file", true)
	}

	mgr := config.NewManager(append(opts, config.WithViper(v))...)
	if err := mgr.LoadFile(configPath); err != nil {
		return nil, err
	}
	if err := mgr.Unmarshal(target); err != nil {
		return nil, err
	}

	if p := v.GetString("log.output_path"); p != "" {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	return mgr, nil
}

// GetExecDir 返回可执行文件所在目录（解析符号链接）
func GetExecDir() (string, error) {
	execPath, err := os.Executable()
	if err != nil {
		return "", err
	}
	if real, err := filepath.EvalSymlinks(execPath); err == nil {
		return filepath.Dir(real), nil
	}
	return filepath.Dir(execPath), nil
}

// GetConfigPath 返回最终生效的配置文件路径
func GetConfigPath() string {
	return configPath
}
