package server

import (
	"path/filepath"
	"testing"

	"github.com/HendryAvila/reasonkit/internal/config"
)

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	dir := t.TempDir()
	return &config.AppConfig{
		DataDir:        dir,
		OutputDir:      filepath.Join(dir, "output"),
		AttachmentsDir: filepath.Join(dir, "attachments"),
		Sampling: config.SamplingConfig{
			MinSamples:    3,
			MaxSamples:    10,
			MinTextLength: 10,
			MaxTextLength: 5000,
		},
		Memory: config.MemoryConfig{Enabled: true, DataDir: dir},
	}
}

func TestNew_RegistersCoreTools(t *testing.T) {
	s, cleanup, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer cleanup()

	tools := s.ListTools()
	for _, name := range []string{
		"planning_initialize", "wbs_execution_start", "tot_initialize", "sequential_thinking",
		"recursive_thinking_initialize", "recursive_thinking_reset",
		"vs_initialize", "cf_initialize", "vibe_refinement_initialize", "session_list",
		"conversation_memory_store", "conversation_memory_query",
	} {
		if _, ok := tools[name]; !ok {
			t.Errorf("tool %q not registered", name)
		}
	}

	// No credentials configured: wrappers stay off.
	for _, name := range []string{"slack_post_message", "jira_search_issues", "confluence_get_page"} {
		if _, ok := tools[name]; ok {
			t.Errorf("tool %q registered without credentials", name)
		}
	}
}

func TestNew_MemoryDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Memory.Enabled = false

	s, cleanup, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer cleanup()

	tools := s.ListTools()
	if _, ok := tools["conversation_memory_store"]; ok {
		t.Error("memory tools registered while memory is disabled")
	}
	if _, ok := tools["planning_initialize"]; !ok {
		t.Error("reasoning tools must not depend on memory")
	}
}

func TestNew_WrappersWithCredentials(t *testing.T) {
	cfg := testConfig(t)
	cfg.Slack.BotToken = "xoxb-test"
	cfg.Jira.URL = "https://jira.example.com"
	cfg.Jira.Token = "pat"
	cfg.Confluence.URL = "https://wiki.example.com"
	cfg.Confluence.Token = "pat"

	s, cleanup, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer cleanup()

	tools := s.ListTools()
	for _, name := range []string{"slack_post_message", "jira_search_issues", "confluence_get_page"} {
		if _, ok := tools[name]; !ok {
			t.Errorf("tool %q not registered", name)
		}
	}
}

func TestNew_NilConfig(t *testing.T) {
	_, cleanup, err := New(nil)
	if err == nil {
		t.Fatal("expected error for nil config")
	}
	cleanup()
}
