package rpcjson

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/lebbe/premises/internal/application"
	"github.com/lebbe/premises/internal/domain"
)

type Server struct {
	service  *application.ConceptService
	listener net.Listener
	path     string
}

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      any             `json:"id"`
}

type response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  any         `json:"result,omitempty"`
	Error   *rpcError   `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func Start(path string, service *application.ConceptService) (*Server, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("rpc socket path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(path, 0o600); err != nil {
		_ = ln.Close()
		_ = os.Remove(path)
		return nil, err
	}

	s := &Server{service: service, listener: ln, path: path}
	go s.serve()
	return s, nil
}

func (s *Server) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handleConn(conn)
	}
}

func (s *Server) Close() error {
	err := s.listener.Close()
	_ = os.Remove(s.path)
	return err
}

func (s *Server) handleConn(conn net.Conn) {
	defer func() { _ = conn.Close() }()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)

	for {
		var req request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			_ = enc.Encode(response{JSONRPC: "2.0", Error: &rpcError{Code: -32700, Message: "parse error"}, ID: nil})
			return
		}

		resp := s.dispatch(context.Background(), req)
		if err := enc.Encode(resp); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, req request) response {
	if req.JSONRPC != "2.0" || strings.TrimSpace(req.Method) == "" {
		return response{JSONRPC: "2.0", Error: &rpcError{Code: -32600, Message: "invalid request"}, ID: req.ID}
	}

	switch req.Method {
	case "universes.list":
		out, err := s.service.Universes(ctx)
		if err != nil {
			return internalError(req.ID, err)
		}
		return result(req.ID, out)
	case "universes.select":
		var p struct {
			Universes []string `json:"universes"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		if err := s.service.SelectUniverses(ctx, p.Universes); err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, map[string]any{"universes": p.Universes})
	case "concepts.list":
		var p struct {
			Q         string   `json:"q"`
			Universes []string `json:"universes"`
		}
		if len(req.Params) > 0 && !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.ListConcepts(ctx, p.Q, p.Universes)
		if err != nil {
			return internalError(req.ID, err)
		}
		return result(req.ID, out)
	case "concepts.get":
		var p struct {
			ID string `json:"id"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.GetConcept(ctx, p.ID)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "concepts.save":
		var p struct {
			PreviousID string         `json:"previousId"`
			Concept    domain.Concept `json:"concept"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.SaveConcept(ctx, p.PreviousID, p.Concept)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "concepts.clear":
		if err := s.service.ClearConcepts(ctx); err != nil {
			return internalError(req.ID, err)
		}
		return result(req.ID, map[string]any{"cleared": true})
	case "graph.build":
		var p struct {
			State      domain.ViewState `json:"state"`
			Hierarchy  bool             `json:"hierarchy"`
			AutoLayout *bool            `json:"autoLayout"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		auto := true
		if p.AutoLayout != nil {
			auto = *p.AutoLayout
		}
		out, err := s.service.BuildGraph(ctx, p.State, p.Hierarchy, auto)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, out)
	case "graph.layout":
		var p struct {
			Nodes     []domain.GraphNode   `json:"nodes"`
			Edges     []domain.GraphEdge   `json:"edges"`
			Options   domain.LayoutOptions `json:"options"`
			Hierarchy bool                 `json:"hierarchy"`
			CentralID string               `json:"centralId"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out := s.service.LayoutGraph(domain.Graph{Nodes: p.Nodes, Edges: p.Edges}, p.Options, p.Hierarchy, p.CentralID)
		return result(req.ID, out)
	case "analysis.cycles":
		var p struct {
			Concepts  []string `json:"concepts"`
			Universes []string `json:"universes"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.Cycles(ctx, p.Concepts, p.Universes)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, map[string]any{"cycles": out})
	case "analysis.floating":
		var p struct {
			Concepts  []string `json:"concepts"`
			Universes []string `json:"universes"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		records, prompt, err := s.service.FloatingAbstractions(ctx, p.Concepts, p.Universes)
		if err != nil {
			return appError(req.ID, err)
		}
		return result(req.ID, map[string]any{"floatingAbstractions": records, "prompt": prompt})
	case "import.analyze":
		data, resp, ok := rawImportPayload(req)
		if !ok {
			return resp
		}
		return result(req.ID, s.service.AnalyzeImport(ctx, data))
	case "import.apply":
		data, resp, ok := rawImportPayload(req)
		if !ok {
			return resp
		}
		return result(req.ID, s.service.RunImport(ctx, data))
	case "export.run":
		var p struct {
			Universes []string `json:"universes"`
		}
		if len(req.Params) > 0 && !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.Export(ctx, p.Universes)
		if err != nil {
			return internalError(req.ID, err)
		}
		return result(req.ID, out)
	default:
		return response{JSONRPC: "2.0", Error: &rpcError{Code: -32601, Message: "method not found"}, ID: req.ID}
	}
}

// rawImportPayload extracts the untrusted concept payload for the import
// methods. It is carried as a nested raw message so the adapter never
// pre-shapes data the import validator must judge.
func rawImportPayload(req request) ([]byte, response, bool) {
	var p struct {
		Data json.RawMessage `json:"data"`
	}
	if !decodeParams(req.Params, &p) || len(p.Data) == 0 {
		return nil, invalidParams(req.ID), false
	}
	return p.Data, response{}, true
}

func decodeParams(raw json.RawMessage, out any) bool {
	if len(raw) == 0 {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

func result(id any, value any) response {
	return response{JSONRPC: "2.0", Result: value, ID: id}
}

func invalidParams(id any) response {
	return response{JSONRPC: "2.0", Error: &rpcError{Code: -32602, Message: "invalid params"}, ID: id}
}

func appError(id any, err error) response {
	return response{JSONRPC: "2.0", Error: &rpcError{Code: 40000, Message: err.Error()}, ID: id}
}

func internalError(id any, err error) response {
	return response{JSONRPC: "2.0", Error: &rpcError{Code: 50000, Message: fmt.Sprintf("internal error: %v", err)}, ID: id}
}
