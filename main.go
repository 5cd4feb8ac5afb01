package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/checkup/checkup/internal/cache"
	"github.com/checkup/checkup/internal/config"
	"github.com/checkup/checkup/internal/coordinator"
	"github.com/checkup/checkup/internal/logging"
	"github.com/checkup/checkup/internal/provider"
	"github.com/checkup/checkup/internal/render"
	"github.com/checkup/checkup/internal/server"
	"github.com/checkup/checkup/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["providers"] = provider.Keys()
		fields["cache_path"] = cfg.Global.CachePath
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	// CLI 启动遵循“配置 → 磁盘缓存 → coordinator → provider → Fiber server”
	// 顺序，保证所有请求共享同一份缓存与单飞状态。
	store, err := cache.NewStore(cfg.Global.CachePath, cfg.Global.CacheTTL.DurationValue())
	if err != nil {
		fmt.Fprintf(stdErr, "初始化缓存目录失败: %v\n", err)
		return 1
	}

	renderer := render.New()
	coord, err := coordinator.New(store, renderer, logger, coordinator.Options{
		FailureBackoff: cfg.Global.FailureBackoff.DurationValue(),
	})
	if err != nil {
		fmt.Fprintf(stdErr, "初始化 coordinator 失败: %v\n", err)
		return 1
	}

	userAgent := cfg.Global.UserAgent
	if userAgent == "" {
		userAgent = "checkup/" + version.Version
	}
	providers := provider.Build(provider.Options{
		Client:    server.NewUpstreamClient(cfg),
		UserAgent: userAgent,
		GitHubAPI: cfg.Provider.GitHubAPI,
		GitLabAPI: cfg.Provider.GitLabAPI,
	})

	fields := logging.BaseFields("startup", opts.configPath)
	fields["providers"] = provider.Keys()
	fields["listen_addr"] = cfg.Global.ListenAddr()
	fields["cache_ttl"] = cfg.Global.CacheTTL.DurationValue().String()
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	if err := startHTTPServer(cfg, logger, coord, providers, renderer); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	coord.Wait()
	return 0
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("checkup", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（留空使用内置默认值，可被 CHECKUP_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("CHECKUP_CONFIG")
	if configFlag != "" {
		path = configFlag
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
	}, nil
}

func startHTTPServer(cfg *config.Config, logger *logrus.Logger, coord *coordinator.Coordinator, providers map[string]provider.Provider, renderer *render.Renderer) error {
	app, err := server.NewApp(server.AppOptions{
		Logger:      logger,
		Coordinator: coord,
		Providers:   providers,
		Renderer:    renderer,
	})
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"addr":   cfg.Global.ListenAddr(),
	}).Info("Fiber 服务启动")

	return app.Listen(cfg.Global.ListenAddr())
}
