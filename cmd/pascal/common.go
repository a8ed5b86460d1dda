package main

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/MannPATIRA/pascal-ai/internal/agent"
	"github.com/MannPATIRA/pascal-ai/internal/agent/openaiapi"
	"github.com/MannPATIRA/pascal-ai/internal/config"
	"github.com/MannPATIRA/pascal-ai/internal/session"
)

func openDB(cfg config.Config) (*sql.DB, func(), error) {
	dbPath := cfg.Session.DBPath
	if dbPath == "" {
		workDir, err := os.Getwd()
		if err != nil {
			return nil, func() {}, err
		}
		stateDir := filepath.Join(workDir, ".pascal")
		if err := os.MkdirAll(stateDir, 0o755); err != nil {
			return nil, func() {}, err
		}
		dbPath = filepath.Join(stateDir, "sessions.db")
	}
	storeDB, err := session.Open(dbPath)
	if err != nil {
		return nil, func() {}, err
	}
	return storeDB, func() { _ = storeDB.Close() }, nil
}

// buildAgent wires the orchestrator: model client, retry policy, store. A
// missing API credential surfaces here, before any event is touched.
func buildAgent(cfg config.Config, store *session.Store) (*agent.Agent, error) {
	client, err := openaiapi.NewClient(openaiapi.Config{
		Model:     cfg.Model.Name,
		BaseURL:   cfg.Model.BaseURL,
		APIKeyEnv: cfg.Model.APIKeyEnv,
		Timeout:   time.Duration(cfg.Model.TimeoutSeconds) * time.Second,
	}, nil)
	if err != nil {
		return nil, err
	}
	caller := agent.NewCaller(client, cfg.Retry.MaxTries, time.Duration(cfg.Retry.BackoffMS)*time.Millisecond)
	return agent.New(store, caller, cfg.Session.HistoryWindow), nil
}
