// Package main 提供 rendezvous-server 命令行入口
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dep2p/rendezvous-server/config"
	"github.com/dep2p/rendezvous-server/internal/app"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := parseFlags(args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return app.RunApp(ctx, app.NewBootstrap(cfg))
}

// ═══════════════════════════════════════════════════════════════════════════
// 命令行参数
// ═══════════════════════════════════════════════════════════════════════════

// parseFlags 解析命令行参数并验证
func parseFlags(args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	fs := flag.NewFlagSet("rendezvous-server", flag.ContinueOnError)

	// 身份
	fs.StringVar(&cfg.Identity.SecretFile, "secret-file", "", "Path to the raw ed25519 secret key file (required)")
	fs.BoolVar(&cfg.Identity.GenerateSecret, "generate-secret", false, "Generate a new secret key into --secret-file (fails if it exists)")

	// 监听
	fs.IntVar(&cfg.Transport.TCPPort, "listen-tcp", config.PortUnset, "TCP port to listen on (required)")
	websocketPort := fs.Int("listen-websocket", config.PortUnset, "Also listen for WebSocket connections on this port")

	// TLS（仅 WebSocket）
	fs.StringVar(&cfg.Security.TLSPrivateKey, "tls-private-key", "", "TLS private key for wss (PEM or DER)")
	fs.StringVar(&cfg.Security.TLSCertificate, "tls-certificate", "", "TLS certificate chain for wss (PEM or DER)")

	// 日志
	fs.BoolVar(&cfg.Log.JSON, "json", false, "Log in JSON format")
	fs.BoolVar(&cfg.Log.NoTimestamp, "no-timestamp", false, "Omit timestamps from log lines")

	// 行为与扩展
	fs.BoolVar(&cfg.Ping.Enable, "ping", false, "Enable the /ipfs/ping/1.0.0 protocol")
	fs.StringVar(&cfg.Metrics.ListenAddr, "metrics-listen", "", "Serve Prometheus metrics on host:port")
	fs.StringVar(&cfg.Rendezvous.RegistrationDB, "registration-db", "", "Persist registrations in a badger database at this directory")
	fs.Float64Var(&cfg.Rendezvous.MaxRegisterRate, "max-register-rate", 0, "Per-peer REGISTER requests per second (0 = unlimited)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	if *websocketPort != config.PortUnset {
		cfg.Transport.EnableWebSocket = true
		cfg.Transport.WebSocketPort = *websocketPort
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
