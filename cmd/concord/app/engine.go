package app

import (
	"github.com/concordsync/concord"
	"github.com/concordsync/concord/internal/directory/google"
	"github.com/concordsync/concord/internal/directory/monica"
	"github.com/concordsync/concord/internal/store"
	"github.com/concordsync/concord/pkg/mapper"
)

// Engine builds a fully wired engine from the loaded configuration. The
// returned cleanup closes the mapping store and must be called when the
// command is done.
func (a *App) Engine() (*concord.Concord, func(), error) {
	cfg := a.config
	if err := cfg.RequireSource(); err != nil {
		return nil, nil, err
	}
	if err := cfg.RequireTarget(); err != nil {
		return nil, nil, err
	}

	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, nil, err
	}

	var googleOpts []google.Option
	if cfg.GoogleBaseURL != "" {
		googleOpts = append(googleOpts, google.WithBaseURL(cfg.GoogleBaseURL))
	}
	var monicaOpts []monica.Option
	if cfg.MonicaBaseURL != "" {
		monicaOpts = append(monicaOpts, monica.WithBaseURL(cfg.MonicaBaseURL))
	}

	eng, err := concord.New(
		concord.WithStore(st),
		concord.WithSource(google.New(cfg.GoogleToken, googleOpts...)),
		concord.WithTarget(monica.New(cfg.MonicaToken, monicaOpts...)),
		concord.WithMapper(mapper.New(
			mapper.WithFields(cfg.Fields),
			mapper.WithStreetReversal(cfg.StreetReversal),
			mapper.WithReminders(cfg.CreateReminders),
		)),
		concord.WithSourceFilter(cfg.GoogleLabels),
		concord.WithTargetFilter(cfg.MonicaLabels),
		concord.WithDeletion(cfg.DeleteOnSync),
		concord.WithDryRun(a.DryRun),
		concord.WithLogger(a.logger),
	)
	if err != nil {
		_ = st.Close()
		return nil, nil, err
	}

	cleanup := func() {
		if err := st.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Closing mapping store failed")
		}
	}
	return eng, cleanup, nil
}

// OpenStore opens just the mapping store, for commands that never talk
// to the directories.
func (a *App) OpenStore() (*store.Store, error) {
	return store.Open(a.config.Database)
}
