// Package argotest provides an in-process fake of the Argo Workflows server
// for tests. Workflows are created through the REST API like on a real
// server; their status is scripted by the test.
package argotest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	wfv1 "github.com/me/argowf/pkg/argo"
)

type key struct {
	namespace string
	name      string
}

// Server is a fake Argo server listening on a local port.
type Server struct {
	URL   string
	Token string

	srv    *httptest.Server
	router chi.Router

	mu         sync.Mutex
	created    []wfv1.Workflow
	workflows  map[key]*wfv1.Workflow
	scripts    map[key][]wfv1.WorkflowStatus
	gets       map[key]int
	failGets   []int
	failCreate int
	artifacts  map[string][]byte
}

// NewServer starts a fake server accepting token as bearer credential and
// stops it when the test ends. An empty token disables the check.
func NewServer(t testing.TB, token string) *Server {
	t.Helper()
	s := &Server{
		Token:     token,
		router:    chi.NewRouter(),
		workflows: make(map[key]*wfv1.Workflow),
		scripts:   make(map[key][]wfv1.WorkflowStatus),
		gets:      make(map[key]int),
		artifacts: make(map[string][]byte),
	}
	s.routes()
	s.srv = httptest.NewServer(s.router)
	s.URL = s.srv.URL
	t.Cleanup(s.srv.Close)
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.Recoverer)
	r.Use(s.authorize)

	r.Post("/api/v1/workflows/{namespace}", s.handleCreate)
	r.Get("/api/v1/workflows/{namespace}/{name}", s.handleGet)
	r.Get("/artifact-files/{namespace}/workflows/{workflow}/{node}/outputs/{artifact}/{file}", s.handleArtifact)
}

// Script queues the statuses returned by successive GETs of a workflow.
// The last status repeats once the queue is drained. Scripting a workflow
// also makes it visible without a prior create.
func (s *Server) Script(namespace, name string, statuses ...wfv1.WorkflowStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{namespace, name}
	s.scripts[k] = append(s.scripts[k], statuses...)
	if _, ok := s.workflows[k]; !ok {
		s.workflows[k] = &wfv1.Workflow{
			APIVersion: wfv1.APIVersion,
			Kind:       wfv1.KindWorkflow,
			Metadata:   wfv1.ObjectMeta{Name: name, Namespace: namespace},
		}
	}
}

// FailGets makes the next GETs of any workflow answer with the given
// status codes, in order.
func (s *Server) FailGets(codes ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failGets = append(s.failGets, codes...)
}

// FailCreate makes every create answer with code. Zero restores success.
func (s *Server) FailCreate(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCreate = code
}

// AddArtifact serves data as file inside the output artifact of node.
func (s *Server) AddArtifact(namespace, workflow, node, artifact, file string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts[artifactKey(namespace, workflow, node, artifact, file)] = data
}

// Created returns the workflows received by create, in order.
func (s *Server) Created() []wfv1.Workflow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]wfv1.Workflow(nil), s.created...)
}

// Gets returns how many status requests were answered for a workflow,
// failed ones included.
func (s *Server) Gets(namespace, name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets[key{namespace, name}]
}

func (s *Server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Token != "" && r.Header.Get("Authorization") != "Bearer "+s.Token {
			writeError(w, http.StatusUnauthorized, "token not valid")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	namespace := chi.URLParam(r, "namespace")

	var req struct {
		Namespace string         `json:"namespace"`
		Workflow  *wfv1.Workflow `json:"workflow"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Workflow == nil {
		writeError(w, http.StatusBadRequest, "malformed create request")
		return
	}
	if req.Namespace != namespace {
		writeError(w, http.StatusBadRequest, "namespace mismatch")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate != 0 {
		writeError(w, s.failCreate, "create rejected")
		return
	}

	wf := *req.Workflow
	wf.Metadata.Namespace = namespace
	k := key{namespace, wf.Metadata.Name}
	if _, exists := s.workflows[k]; exists && len(s.scripts[k]) == 0 {
		writeError(w, http.StatusConflict, "workflow already exists")
		return
	}
	s.created = append(s.created, wf)
	stored := wf
	s.workflows[k] = &stored
	writeJSON(w, http.StatusOK, &wf)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	k := key{chi.URLParam(r, "namespace"), chi.URLParam(r, "name")}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets[k]++

	if len(s.failGets) > 0 {
		code := s.failGets[0]
		s.failGets = s.failGets[1:]
		writeError(w, code, "injected failure")
		return
	}

	wf, ok := s.workflows[k]
	if !ok {
		writeError(w, http.StatusNotFound, "workflow not found")
		return
	}

	out := *wf
	if queue := s.scripts[k]; len(queue) > 0 {
		status := queue[0]
		if len(queue) > 1 {
			s.scripts[k] = queue[1:]
		}
		out.Status = &status
	}
	writeJSON(w, http.StatusOK, &out)
}

func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	k := artifactKey(
		chi.URLParam(r, "namespace"),
		chi.URLParam(r, "workflow"),
		chi.URLParam(r, "node"),
		chi.URLParam(r, "artifact"),
		chi.URLParam(r, "file"),
	)

	s.mu.Lock()
	data, ok := s.artifacts[k]
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "artifact not found")
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(data)
}

func artifactKey(parts ...string) string {
	return strings.Join(parts, "/")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError answers in the grpc-gateway error shape the Argo server uses.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"code": status, "message": message})
}

// Status returns a status document with the given phase and progress.
func Status(phase wfv1.Phase, progress string) wfv1.WorkflowStatus {
	return wfv1.WorkflowStatus{Phase: string(phase), Progress: progress}
}

// WithOutputs returns st with the output parameters attached to node,
// which is the workflow name for the root node. Parameters are sorted by
// name.
func WithOutputs(st wfv1.WorkflowStatus, node string, params map[string]string) wfv1.WorkflowStatus {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	outputs := &wfv1.Outputs{}
	for _, name := range names {
		outputs.Parameters = append(outputs.Parameters, wfv1.Parameter{Name: name, Value: wfv1.StringPtr(params[name])})
	}

	nodes := make(map[string]wfv1.NodeStatus, len(st.Nodes)+1)
	for id, n := range st.Nodes {
		nodes[id] = n
	}
	nodes[node] = wfv1.NodeStatus{ID: node, Name: node, Phase: st.Phase, Outputs: outputs}
	st.Nodes = nodes
	return st
}
