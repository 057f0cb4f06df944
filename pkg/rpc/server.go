package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/rs/zerolog/log"

	"darksight/pkg/crypto"
	"darksight/pkg/field"
	"darksight/pkg/state"
	"darksight/pkg/witness"
)

// JSON-RPC error codes
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
	codeStaleRoot      = -32000
	codeOutOfOrder     = -32001
)

// Server exposes the witness generator over JSON-RPC
type Server struct {
	generator *witness.Generator
	addr      string
	server    *http.Server
	mu        sync.RWMutex
}

// JSONRPCRequest represents a JSON-RPC request
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      interface{}     `json:"id"`
}

// JSONRPCResponse represents a JSON-RPC response
type JSONRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	Result  interface{}   `json:"result,omitempty"`
	Error   *JSONRPCError `json:"error,omitempty"`
	ID      interface{}   `json:"id"`
}

// JSONRPCError represents a JSON-RPC error
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *JSONRPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// NewServer creates a new RPC server
func NewServer(gen *witness.Generator, addr string) *Server {
	return &Server{
		generator: gen,
		addr:      addr,
	}
}

// Handler returns the HTTP handler serving JSON-RPC requests
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRPC)
	return mux
}

// Start starts the RPC server
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.server = &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	go func() {
		log.Info().Str("addr", s.addr).Msg("Starting RPC server")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("RPC server error")
		}
	}()

	return nil
}

// Stop stops the RPC server
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		log.Info().Msg("Stopping RPC server")
		return s.server.Close()
	}
	return nil
}

// handleRPC handles JSON-RPC requests
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req JSONRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &req, &JSONRPCError{Code: codeParseError, Message: "Parse error"})
		return
	}

	var (
		result interface{}
		err    error
	)
	switch req.Method {
	case "witness_getRoot":
		result, err = s.getRoot()
	case "witness_getEmptyRoot":
		result, err = s.getEmptyRoot(req.Params)
	case "witness_getPath":
		result, err = s.getPath(req.Params)
	case "witness_verify":
		result, err = s.verify(req.Params)
	case "witness_applyLeaf":
		result, err = s.applyLeaf(req.Params)
	case "witness_commit":
		result, err = s.commit(req.Params)
	case "witness_deriveNullifier":
		result, err = s.deriveNullifier(req.Params)
	case "witness_build":
		result, err = s.build(req.Params)
	default:
		err = &JSONRPCError{Code: codeMethodNotFound, Message: "Method not found"}
	}

	if err != nil {
		log.Debug().Err(err).Str("method", req.Method).Msg("RPC request failed")
		writeError(w, &req, toRPCError(err))
		return
	}

	response := JSONRPCResponse{
		JSONRPC: "2.0",
		Result:  result,
		ID:      req.ID,
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// RootResult is returned by witness_getRoot and witness_getEmptyRoot
type RootResult struct {
	Root    state.Root `json:"root"`
	Depth   int        `json:"depth"`
	Applied uint64     `json:"applied"`
	Leaves  int        `json:"leaves"`
}

func (s *Server) getRoot() (interface{}, error) {
	tree := s.generator.Tree()
	return RootResult{
		Root:    tree.CurrentRoot(),
		Depth:   tree.Depth(),
		Applied: tree.Applied(),
		Leaves:  tree.Len(),
	}, nil
}

func (s *Server) getEmptyRoot(raw json.RawMessage) (interface{}, error) {
	tree := s.generator.Tree()
	level := tree.Depth()

	var params []int
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, invalidParams(err)
		}
	}
	if len(params) > 0 {
		level = params[0]
	}

	root, err := tree.EmptyHash(level)
	if err != nil {
		return nil, invalidParams(err)
	}
	return RootResult{Root: root, Depth: level}, nil
}

// PathResult is returned by witness_getPath
type PathResult struct {
	Leaf field.Element `json:"leaf"`
	Path state.Path    `json:"path"`
	Root state.Root    `json:"root"`
}

func (s *Server) getPath(raw json.RawMessage) (interface{}, error) {
	var params []uint64
	if err := json.Unmarshal(raw, &params); err != nil || len(params) < 1 {
		return nil, invalidParams(err)
	}

	leaf, path, root, err := s.generator.Tree().Proof(params[0])
	if err != nil {
		return nil, err
	}
	return PathResult{Leaf: leaf, Path: path, Root: root}, nil
}

// VerifyParams is the argument of witness_verify
type VerifyParams struct {
	Leaf field.Element `json:"leaf"`
	Path state.Path    `json:"path"`
	Root state.Root    `json:"root"`
}

func (s *Server) verify(raw json.RawMessage) (interface{}, error) {
	var params []VerifyParams
	if err := json.Unmarshal(raw, &params); err != nil || len(params) < 1 {
		return nil, invalidParams(err)
	}
	p := params[0]
	return map[string]bool{"valid": s.generator.Tree().Verify(p.Leaf, p.Path, p.Root)}, nil
}

func (s *Server) applyLeaf(raw json.RawMessage) (interface{}, error) {
	var params []state.LogEntry
	if err := json.Unmarshal(raw, &params); err != nil || len(params) < 1 {
		return nil, invalidParams(err)
	}

	tree := s.generator.Tree()
	root, err := tree.Apply(params[0])
	if err != nil {
		return nil, err
	}
	return RootResult{
		Root:    root,
		Depth:   tree.Depth(),
		Applied: tree.Applied(),
		Leaves:  tree.Len(),
	}, nil
}

// CommitParams is the argument of witness_commit. A missing blinding factor is
// drawn fresh and returned.
type CommitParams struct {
	Value    string         `json:"value"`
	Blinding *field.Element `json:"blinding,omitempty"`
}

// CommitResult is returned by witness_commit
type CommitResult struct {
	Commitment crypto.Commitment `json:"commitment"`
	Leaf       field.Element     `json:"leaf"`
	Blinding   field.Element     `json:"blinding"`
}

func (s *Server) commit(raw json.RawMessage) (interface{}, error) {
	var params []CommitParams
	if err := json.Unmarshal(raw, &params); err != nil || len(params) < 1 {
		return nil, invalidParams(err)
	}

	value, err := parseValue(params[0].Value)
	if err != nil {
		return nil, err
	}
	var blinding field.Element
	if params[0].Blinding != nil {
		blinding = *params[0].Blinding
	} else if blinding, err = crypto.NewBlinding(); err != nil {
		return nil, err
	}

	c := crypto.Commit(value, blinding)
	return CommitResult{Commitment: c, Leaf: c.Leaf(), Blinding: blinding}, nil
}

// NullifierParams is the argument of witness_deriveNullifier
type NullifierParams struct {
	Secret *field.Element `json:"secret"`
	Index  uint64         `json:"index"`
}

func (s *Server) deriveNullifier(raw json.RawMessage) (interface{}, error) {
	var params []NullifierParams
	if err := json.Unmarshal(raw, &params); err != nil || len(params) < 1 {
		return nil, invalidParams(err)
	}
	if params[0].Secret == nil {
		return nil, invalidParams(errMissing("secret"))
	}
	n := crypto.DeriveNullifier(*params[0].Secret, crypto.IndexElement(params[0].Index))
	return map[string]field.Element{"nullifier": n}, nil
}

// BuildParams is the argument of witness_build. Blinding and Secret are
// required.
type BuildParams struct {
	Value    string         `json:"value"`
	Blinding *field.Element `json:"blinding"`
	Secret   *field.Element `json:"secret"`
	Index    uint64         `json:"index"`
	OldRoot  state.Root     `json:"old_root"`
}

// BuildResult is returned by witness_build
type BuildResult struct {
	Record        *witness.Record        `json:"record"`
	Encoded       hexutil.Bytes          `json:"encoded"`
	CircuitInputs map[string]interface{} `json:"circuit_inputs"`
}

func (s *Server) build(raw json.RawMessage) (interface{}, error) {
	var params []BuildParams
	if err := json.Unmarshal(raw, &params); err != nil || len(params) < 1 {
		return nil, invalidParams(err)
	}
	p := params[0]
	switch {
	case p.Blinding == nil:
		return nil, invalidParams(errMissing("blinding"))
	case p.Secret == nil:
		return nil, invalidParams(errMissing("secret"))
	}

	value, err := parseValue(p.Value)
	if err != nil {
		return nil, err
	}

	rec, err := s.generator.Build(witness.Request{
		Value:    value,
		Blinding: *p.Blinding,
		Secret:   *p.Secret,
		Index:    p.Index,
		OldRoot:  p.OldRoot,
	})
	if err != nil {
		return nil, err
	}

	encoded, err := rec.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return BuildResult{Record: rec, Encoded: encoded, CircuitInputs: rec.CircuitInputs()}, nil
}

// parseValue accepts a decimal amount below the commitment bound
func parseValue(s string) (field.Element, error) {
	value, err := field.FromDecimal(s)
	if err != nil {
		return field.Element{}, invalidParams(err)
	}
	if value.BigInt().Cmp(crypto.ValueBound) >= 0 {
		return field.Element{}, invalidParams(witness.ErrValueOutOfRange)
	}
	return value, nil
}

func errMissing(name string) error {
	return fmt.Errorf("missing %s", name)
}

func invalidParams(err error) *JSONRPCError {
	msg := "Invalid params"
	if err != nil {
		msg = fmt.Sprintf("Invalid params: %v", err)
	}
	return &JSONRPCError{Code: codeInvalidParams, Message: msg}
}

// toRPCError maps domain errors onto JSON-RPC codes
func toRPCError(err error) *JSONRPCError {
	var rpcErr *JSONRPCError
	switch {
	case errors.As(err, &rpcErr):
		return rpcErr
	case errors.Is(err, state.ErrStaleRoot):
		return &JSONRPCError{Code: codeStaleRoot, Message: err.Error()}
	case errors.Is(err, state.ErrOutOfOrder):
		return &JSONRPCError{Code: codeOutOfOrder, Message: err.Error()}
	case errors.Is(err, state.ErrIndexOutOfRange),
		errors.Is(err, state.ErrInvalidDepth),
		errors.Is(err, field.ErrMalformedFieldElement),
		errors.Is(err, witness.ErrValueOutOfRange):
		return &JSONRPCError{Code: codeInvalidParams, Message: err.Error()}
	default:
		return &JSONRPCError{Code: codeInternalError, Message: fmt.Sprintf("Internal error: %v", err)}
	}
}

// writeError writes a JSON-RPC error response
func writeError(w http.ResponseWriter, req *JSONRPCRequest, rpcErr *JSONRPCError) {
	response := JSONRPCResponse{
		JSONRPC: "2.0",
		Error:   rpcErr,
		ID:      req.ID,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Error().Err(err).Msg("Failed to encode error response")
	}
}
