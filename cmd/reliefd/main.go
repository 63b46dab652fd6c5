package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/relieflab/reliefd/internal/admin"
	"github.com/relieflab/reliefd/internal/channel"
	"github.com/relieflab/reliefd/internal/convert"
	"github.com/relieflab/reliefd/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "path to reliefd config.toml")
	flag.Parse()

	cfg := defaultServiceConfig()
	if *configPath != "" {
		loaded, err := loadServiceConfig(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "reliefd:", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	if err := run(cfg); err != nil {
		log.Error().Err(err).Msg("reliefd exited with error")
		os.Exit(1)
	}
}

func run(cfg serviceConfig) error {
	_, dest := logging.Open(cfg.Logging)
	defer dest.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := channel.NewServer(cfg.Channel, convert.NewHandler(cfg.OutputDir))
	ln, err := srv.Listen()
	if err != nil {
		return err
	}

	if cfg.AdminListenAddr != "" {
		adm := admin.New("reliefd", cfg.CorsOrigins, srv.Stats)
		go func() {
			if err := adm.Serve(ctx, cfg.AdminListenAddr); err != nil {
				log.Error().Str("addr", cfg.AdminListenAddr).Err(err).Msg("admin server exited")
			}
		}()
	}

	return srv.Serve(ctx, ln)
}
