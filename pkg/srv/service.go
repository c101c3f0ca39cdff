package srv

import (
	"context"
	"errors"
	"fmt"

	"github.com/sandevgo/airbot/pkg/log"
)

type Service interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

func StartServices(ctx context.Context, services []Service) {
	logger := log.FromCtx(ctx)
	for _, service := range services {
		go func(service Service) {
			if err := service.Start(ctx); err != nil {
				logger.Fatal().Err(err).Msgf("%v failed to start", name(service))
			}
		}(service)
	}
}

// ShutdownServices blocks until ctx is done, then stops services in
// reverse start order so stores close after the transports using them.
func ShutdownServices(ctx context.Context, services []Service) {
	<-ctx.Done()
	if err := StopServices(context.WithoutCancel(ctx), services); err != nil {
		log.FromCtx(ctx).Error().Err(err).Msg("shutdown finished with errors")
	}
}

// StopServices shuts every service down in reverse order and joins the
// failures. A failing service does not stop the rest.
func StopServices(ctx context.Context, services []Service) error {
	var errs []error
	for i := len(services) - 1; i >= 0; i-- {
		if err := services[i].Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%v: %w", name(services[i]), err))
		}
	}
	return errors.Join(errs...)
}

func name(s Service) string {
	if n, ok := s.(fmt.Stringer); ok {
		return n.String()
	}
	return fmt.Sprintf("%T", s)
}
