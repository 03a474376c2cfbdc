package app

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// KeepAlive поднимает HTTP-сервер со здоровьем и метриками. Хостинги
// вроде Render усыпляют сервисы без входящего трафика, поэтому наружу
// нужен хоть какой-то порт.
type KeepAlive struct {
	server *http.Server
	logger *zap.Logger
}

// NewKeepAlive создаёт HTTP-сервер на указанном порту
func NewKeepAlive(port string, logger *zap.Logger) *KeepAlive {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	return &KeepAlive{
		server: &http.Server{
			Addr:              ":" + port,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Start запускает сервер в фоне
func (k *KeepAlive) Start() {
	go func() {
		k.logger.Info("Keep-alive server listening", zap.String("addr", k.server.Addr))
		if err := k.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			k.logger.Error("Keep-alive server failed", zap.Error(err))
		}
	}()
}

// Stop останавливает сервер
func (k *KeepAlive) Stop(ctx context.Context) {
	if err := k.server.Shutdown(ctx); err != nil {
		k.logger.Warn("Keep-alive server shutdown failed", zap.Error(err))
	}
}
