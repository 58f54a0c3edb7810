package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/dfslabs/dfs/rpc/common"
	"github.com/dfslabs/dfs/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("transport/rpc")

// NewHttpServerTransport creates a new HTTP server transport
func NewHttpServerTransport() transport.IRPCServerTransport {
	return &httpServerTransport{}
}

type httpServerTransport struct {
	handler transport.ServerHandleFunc
	server  *http.Server
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *httpServerTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *httpServerTransport) Listen(config common.ServerConfig) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		req, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "failed to read request", http.StatusBadRequest)
			return
		}

		resp := t.handler(req)

		w.Header().Set("Content-Type", "application/octet-stream")
		if _, err := w.Write(resp); err != nil {
			Logger.Errorf("Failed to write response: %v", err)
		}
	})

	t.server = &http.Server{
		Addr:         config.Endpoint,
		Handler:      mux,
		ReadTimeout:  time.Duration(config.TimeoutSecond) * time.Second,
		WriteTimeout: time.Duration(config.TimeoutSecond) * time.Second,
	}

	Logger.Infof("Starting http server on %s", config.Endpoint)

	if err := t.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (t *httpServerTransport) Shutdown() error {
	if t.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return t.server.Shutdown(ctx)
}
