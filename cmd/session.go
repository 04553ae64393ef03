package cmd

import (
	"time"

	"github.com/KaramelBytes/cepv-cli/internal/api"
	cfgpkg "github.com/KaramelBytes/cepv-cli/internal/config"
	"github.com/KaramelBytes/cepv-cli/internal/credstore"
	"github.com/KaramelBytes/cepv-cli/internal/dashboard"
	"github.com/KaramelBytes/cepv-cli/internal/logging"
	"github.com/KaramelBytes/cepv-cli/internal/render"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// session is everything one command invocation needs to talk to the service.
type session struct {
	cfg    *cfgpkg.Global
	logger *zap.Logger
	store  *credstore.Store
	client *api.Client
	dash   *dashboard.Controller
	auth   *dashboard.Auth
}

func newSession() (*session, error) {
	if cfg == nil {
		c, err := cfgpkg.Load(cfgFile)
		if err != nil {
			return nil, err
		}
		cfg = c
	}
	logger, err := logging.New(cfg.LogLevel, debug)
	if err != nil {
		return nil, err
	}
	store, err := credstore.Open(cfg.SessionFile)
	if err != nil {
		// The store still works; a broken file is replaced on the next write.
		logger.Warn("session file unreadable, starting fresh", zap.String("path", cfg.SessionFile), zap.Error(err))
	}
	timeout := time.Duration(cfg.HTTPTimeoutSec) * time.Second
	client := api.NewClient(cfg.BaseURL, timeout, store, logger)
	s := &session{
		cfg:    cfg,
		logger: logger,
		store:  store,
		client: client,
		dash:   dashboard.New(client, logger),
		auth:   dashboard.NewAuth(client, store, logger),
	}
	logger.Debug("session ready",
		zap.String("base_url", cfg.BaseURL),
		zap.Bool("logged_in", s.auth.LoggedIn()),
		zap.String("theme", s.theme()),
	)
	return s, nil
}

// theme is the stored preference. Until one is stored the config default
// applies.
func (s *session) theme() string {
	if !s.store.HasTheme() && s.cfg.Theme == credstore.ThemeDark {
		return credstore.ThemeDark
	}
	return s.store.Theme()
}

func (s *session) renderer(cmd *cobra.Command) *render.Renderer {
	return render.New(cmd.OutOrStdout(), s.theme(), !noColor)
}

func (s *session) close() {
	_ = s.logger.Sync()
}
