package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "token", cfg: Config{BaseURL: "http://api", Token: "t"}},
		{name: "password", cfg: Config{BaseURL: "http://api", Username: "u", Password: "p"}},
		{name: "no base url", cfg: Config{Token: "t"}, wantErr: true},
		{name: "no credentials", cfg: Config{BaseURL: "http://api"}, wantErr: true},
		{name: "username without password", cfg: Config{BaseURL: "http://api", Username: "u"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() err=%v, wantErr=%v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("TD_API_URL", "http://api.internal")
	t.Setenv("TD_API_TOKEN", "secret")
	cfg := ConfigFromEnv()
	if cfg.BaseURL != "http://api.internal" || cfg.Token != "secret" {
		t.Fatalf("ConfigFromEnv()=%+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() err=%v", err)
	}
}

func TestClient_StaticTokenRequests(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/executions/exec-1":
			json.NewEncoder(w).Encode(Execution{ID: "exec-1", Status: "running"})
		case r.Method == http.MethodPost && r.URL.Path == "/function_runs/work-1/status":
			var status FunctionRunStatus
			if err := json.NewDecoder(r.Body).Decode(&status); err != nil || status.Status != "done" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client, err := New(context.Background(), Config{BaseURL: server.URL, Token: "tok-123"})
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}

	execution, err := client.GetExecution(context.Background(), "exec-1")
	if err != nil {
		t.Fatalf("GetExecution() err=%v", err)
	}
	if execution.ID != "exec-1" || execution.Status != "running" {
		t.Fatalf("GetExecution()=%+v", execution)
	}
	if gotAuth != "Bearer tok-123" {
		t.Fatalf("Authorization=%q", gotAuth)
	}

	if err := client.UpdateFunctionRunStatus(context.Background(), "work-1", FunctionRunStatus{Status: "done"}); err != nil {
		t.Fatalf("UpdateFunctionRunStatus() err=%v", err)
	}
}

func TestClient_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "execution not found", http.StatusNotFound)
	}))
	defer server.Close()

	client, err := New(context.Background(), Config{BaseURL: server.URL, Token: "tok"})
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	_, err = client.GetExecution(context.Background(), "missing")
	if err == nil || !strings.Contains(err.Error(), "status=404") {
		t.Fatalf("GetExecution() err=%v, want status=404", err)
	}
}

func TestClient_PasswordGrant(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.FormValue("grant_type") != "password" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.FormValue("username") != "alice" || r.FormValue("password") != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"granted","token_type":"bearer"}`))
	})
	mux.HandleFunc("/executions/exec-2", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer granted" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(Execution{ID: "exec-2", Status: "done"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client, err := New(context.Background(), Config{BaseURL: server.URL, Username: "alice", Password: "pw"})
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	execution, err := client.GetExecution(context.Background(), "exec-2")
	if err != nil {
		t.Fatalf("GetExecution() err=%v", err)
	}
	if execution.Status != "done" {
		t.Fatalf("GetExecution()=%+v", execution)
	}
}
