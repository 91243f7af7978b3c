// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package agent

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/graphql-go/graphql"
	hclog "github.com/hashicorp/go-hclog"
	"github.com/rs/cors"
)

// allowCORS sets permissive CORS headers for the admin UI and tooling.
var allowCORS = cors.New(cors.Options{
	AllowedOrigins: []string{"*"},
	AllowedMethods: []string{"HEAD", "GET", "POST", "OPTIONS"},
	AllowedHeaders: []string{"*"},
})

// HTTPServer wraps an Agent and exposes it over HTTP.
type HTTPServer struct {
	agent    *Agent
	mux      *http.ServeMux
	listener net.Listener
	schema   graphql.Schema
	logger   hclog.Logger
	srv      *http.Server
	Addr     string
}

// NewHTTPServer starts the HTTP server over the agent.
func NewHTTPServer(agent *Agent, config *Config) (*HTTPServer, error) {
	addr := fmt.Sprintf("%s:%d", config.BindAddr, config.HTTPPort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to start HTTP listener: %v", err)
	}

	schema, err := newSchema(agent)
	if err != nil {
		ln.Close()
		return nil, fmt.Errorf("failed to build GraphQL schema: %v", err)
	}

	s := &HTTPServer{
		agent:    agent,
		mux:      http.NewServeMux(),
		listener: ln,
		schema:   schema,
		logger:   agent.logger.Named("http"),
		Addr:     ln.Addr().String(),
	}
	s.registerHandlers()

	s.srv = &http.Server{
		Addr:        s.Addr,
		Handler:     allowCORS.Handler(s.mux),
		ReadTimeout: 30 * time.Second,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http serve failed", "error", err)
		}
	}()

	s.logger.Info("http server started", "address", s.Addr)
	return s, nil
}

func (s *HTTPServer) registerHandlers() {
	s.mux.HandleFunc("/v1/graphql", s.graphqlRequest)
	s.mux.HandleFunc("/v1/agent/health", s.healthRequest)
}

// Shutdown closes the listener and in-flight connections.
func (s *HTTPServer) Shutdown() {
	if s == nil {
		return
	}
	s.logger.Debug("shutting down http server")
	s.srv.Close()
}

// graphqlPayload is the standard GraphQL-over-HTTP request body.
type graphqlPayload struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

func (s *HTTPServer) graphqlRequest(resp http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(resp, "Invalid method", http.StatusMethodNotAllowed)
		return
	}

	var payload graphqlPayload
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		http.Error(resp, "Invalid request body", http.StatusBadRequest)
		return
	}

	// The principal rides on the context; resolvers enforce authorization.
	ctx := req.Context()
	if p := principalFromRequest(req); p != nil {
		ctx = WithPrincipal(ctx, p)
	}

	result := graphql.Do(graphql.Params{
		Schema:         s.schema,
		RequestString:  payload.Query,
		OperationName:  payload.OperationName,
		VariableValues: payload.Variables,
		Context:        ctx,
	})

	resp.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(resp).Encode(result); err != nil {
		s.logger.Error("failed to encode graphql response", "error", err)
	}
}

func (s *HTTPServer) healthRequest(resp http.ResponseWriter, req *http.Request) {
	resp.Header().Set("Content-Type", "application/json")
	resp.WriteHeader(http.StatusOK)
	fmt.Fprintln(resp, `{"ok":true}`)
}
