// grpc - служебный gRPC-сервер report-board: только grpc.health.v1
// (для оркестраторов) и, в local/dev, reflection.
package grpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/pribylovaa/report-board/pkg/interceptors"
)

// Options - параметры сборки сервера.
type Options struct {
	Logger     *slog.Logger
	Timeout    time.Duration
	Reflection bool
}

// Server оборачивает *grpc.Server и health-сервис.
// До SetServing(true) health отвечает NOT_SERVING.
type Server struct {
	srv    *grpc.Server
	health *health.Server
	log    *slog.Logger
}

// New собирает сервер с цепочкой recover -> logging -> timeout -> prometheus.
func New(opts Options) *Server {
	lg := opts.Logger
	if lg == nil {
		lg = slog.Default()
	}

	grpc_prometheus.EnableHandlingTimeHistogram()

	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			interceptors.Recover(lg),
			interceptors.UnaryLoggingInterceptor(lg),
			interceptors.WithTimeout(opts.Timeout),
			grpc_prometheus.UnaryServerInterceptor,
		),
		grpc.ChainStreamInterceptor(
			grpc_prometheus.StreamServerInterceptor,
		),
	)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	if opts.Reflection {
		reflection.Register(srv)
	}

	grpc_prometheus.Register(srv)

	return &Server{srv: srv, health: hs, log: lg}
}

// SetServing переключает статус health-сервиса.
func (s *Server) SetServing(ok bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
}

// Serve блокируется до остановки сервера.
// Штатная остановка (Stop) ошибкой не считается.
func (s *Server) Serve(lis net.Listener) error {
	const op = "transport.grpc.Serve"

	s.log.Info("grpc_listen_start", slog.String("addr", lis.Addr().String()))
	if err := s.srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Stop переводит health в NOT_SERVING и делает GracefulStop;
// по истечении ctx соединения обрываются принудительно.
func (s *Server) Stop(ctx context.Context) {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.srv.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("grpc_stopped")
	case <-ctx.Done():
		s.log.Warn("grpc_force_stop")
		s.srv.Stop()
		<-done
	}
}
