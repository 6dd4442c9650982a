package sessionpool

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gotd/contrib/session"
	"github.com/gotd/td/telegram"
)

// gotdDialer is the production dialer: each credential maps to a
// gotd/td telegram.Client backed by a gotd/contrib file session store
// pointed at the credential's `.session` blob (SPEC_FULL.md §4.1).
type gotdDialer struct {
	logger        *slog.Logger
	updateHandler telegram.UpdateHandler
}

func (d *gotdDialer) dial(ctx context.Context, cred Credential) (*Session, error) {
	client := telegram.NewClient(cred.AppID, cred.AppHash, telegram.Options{
		SessionStorage: &session.FileStorage{Path: cred.SessionPath},
		UpdateHandler:  d.updateHandler,
	})

	runCtx, cancel := context.WithCancel(context.Background())
	ready := make(chan error, 1)
	done := make(chan struct{})

	go func() {
		defer close(done)
		err := client.Run(runCtx, func(connCtx context.Context) error {
			status, err := client.Auth().Status(connCtx)
			if err != nil {
				ready <- err
				return err
			}
			if !status.Authorized {
				ready <- ErrNotAuthorized
				return ErrNotAuthorized
			}
			ready <- nil
			<-connCtx.Done()
			return nil
		})
		if err != nil {
			select {
			case ready <- err:
			default:
			}
			d.logger.Debug("sessionpool: client run exited",
				slog.String("session", cred.Name), slog.String("error", err.Error()))
		}
	}()

	select {
	case err := <-ready:
		if err != nil {
			cancel()
			<-done
			return nil, fmt.Errorf("sessionpool: connect %s: %w", cred.Name, err)
		}
	case <-ctx.Done():
		cancel()
		<-done
		return nil, ctx.Err()
	}

	return &Session{
		Name:       cred.Name,
		Credential: cred,
		api:        client.API(),
		stop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	}, nil
}
