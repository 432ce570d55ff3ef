package kit

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// RunHTTPServer serves h on addr until SIGINT or SIGTERM, then drains
// in-flight requests and runs cleanup in order with the same deadline.
// A listener failure is returned without running cleanup.
func RunHTTPServer(addr string, h http.Handler, log *zap.Logger, cleanup ...func(context.Context) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return serve(ctx, &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: readHeaderTimeout,
	}, log, cleanup...)
}

func serve(ctx context.Context, srv *http.Server, log *zap.Logger, cleanup ...func(context.Context) error) error {
	if log == nil {
		log = zap.NewNop()
	}

	failed := make(chan error, 1)
	go func() {
		log.Info("http server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			failed <- err
		}
	}()

	select {
	case err := <-failed:
		return err
	case <-ctx.Done():
		log.Info("http server stopping", zap.Error(context.Cause(ctx)))
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := srv.Shutdown(sctx)
	for i, fn := range cleanup {
		if cerr := fn(sctx); cerr != nil {
			log.Warn("cleanup failed", zap.Int("step", i), zap.Error(cerr))
		}
	}
	return err
}
