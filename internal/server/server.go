// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it creates the session stores, the family
// services and the wrapper clients, and hands them to the tools, prompts
// and resources that expose them. No business logic lives here.
package server

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"

	"github.com/HendryAvila/reasonkit/internal/artifacts"
	"github.com/HendryAvila/reasonkit/internal/config"
	"github.com/HendryAvila/reasonkit/internal/confluence"
	"github.com/HendryAvila/reasonkit/internal/counterfactual"
	"github.com/HendryAvila/reasonkit/internal/jira"
	"github.com/HendryAvila/reasonkit/internal/memory"
	"github.com/HendryAvila/reasonkit/internal/memtools"
	"github.com/HendryAvila/reasonkit/internal/planning"
	"github.com/HendryAvila/reasonkit/internal/prompts"
	"github.com/HendryAvila/reasonkit/internal/recursive"
	"github.com/HendryAvila/reasonkit/internal/resources"
	"github.com/HendryAvila/reasonkit/internal/sampling"
	"github.com/HendryAvila/reasonkit/internal/sequential"
	"github.com/HendryAvila/reasonkit/internal/session"
	"github.com/HendryAvila/reasonkit/internal/slackclient"
	"github.com/HendryAvila/reasonkit/internal/thoughts"
	"github.com/HendryAvila/reasonkit/internal/tools"
	"github.com/HendryAvila/reasonkit/internal/vibe"
	"github.com/HendryAvila/reasonkit/internal/wbsexec"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with all tools, prompts,
// and resources registered. This is the single place where all
// dependencies are resolved.
//
// The returned cleanup function stops the session reaper and closes the
// memory store. It is always non-nil and safe to call even if memory
// init failed.
func New(cfg *config.AppConfig) (*server.MCPServer, func(), error) {
	if cfg == nil {
		return nil, noop, fmt.Errorf("server: nil configuration")
	}

	// --- Create shared dependencies ---

	files := artifacts.NewWriter(cfg.OutputDir)

	plans := planning.NewService(planning.NewStore(), files)
	execs := wbsexec.NewService(wbsexec.NewStore(), plans.Store(), files)
	tots := thoughts.NewService(thoughts.NewStore())
	seqs := sequential.NewService(sequential.NewStore())
	recs := recursive.NewService(recursive.NewStore())
	samples := sampling.NewService(sampling.NewStore(), sampling.WithLimits(sampling.Limits{
		MinSamples:    cfg.Sampling.MinSamples,
		MaxSamples:    cfg.Sampling.MaxSamples,
		MinTextLength: cfg.Sampling.MinTextLength,
		MaxTextLength: cfg.Sampling.MaxTextLength,
	}))
	cfs := counterfactual.NewService(counterfactual.NewStore(), files)
	vibes := vibe.NewService(vibe.NewStore())

	registry := session.NewRegistry(
		plans.Store(),
		execs.Store(),
		tots.Store(),
		seqs.Store(),
		recs.Store(),
		samples.Store(),
		cfs.Store(),
		vibes.Store(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	registry.StartReaper(ctx, cfg.Session.TTL, cfg.Session.SweepInterval)
	cleanup := cancel

	// --- Create the MCP server ---

	s := server.NewMCPServer(
		"reasonkit",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Wire the memory bridge ---
	//
	// Memory is an independent subsystem: if it fails to open, the
	// reasoning tools keep working without it. We log a warning and skip
	// memory tool registration.
	var obs tools.CompletionObserver
	if cfg.Memory.Enabled {
		memCfg := memory.DefaultConfig()
		memCfg.DataDir = cfg.Memory.DataDir
		memStore, err := memory.New(memCfg)
		if err != nil {
			log.Warn().Err(err).Msg("memory subsystem disabled")
		} else {
			cleanup = func() {
				cancel()
				if err := memStore.Close(); err != nil {
					log.Warn().Err(err).Msg("memory store close")
				}
			}
			registerMemoryTools(s, memStore)

			// Only assign a non-nil bridge: a nil *MemoryBridge inside the
			// interface would not compare equal to nil.
			if bridge := tools.NewMemoryBridge(memStore); bridge != nil {
				obs = bridge
			}
		}
	} else {
		log.Info().Msg("memory subsystem disabled by MEMORY_ENABLED=false")
	}

	// --- Register reasoning tools ---

	register(s, tools.Planning(plans, obs))
	register(s, tools.Execution(execs, obs))
	register(s, tools.TreeOfThoughts(tots, obs))
	register(s, tools.Sequential(seqs, obs))
	register(s, tools.RecursiveThinking(recs, obs))
	register(s, tools.Sampling(samples, obs))
	register(s, tools.Counterfactual(cfs, obs))
	register(s, tools.Vibe(vibes, obs))
	register(s, tools.Sessions(registry))

	// --- Register wrapper tools ---

	registerWrappers(s, cfg)

	// --- Register prompts ---

	startPrompt := prompts.NewStartPrompt()
	s.AddPrompt(startPrompt.Definition(), startPrompt.Handle)

	statusPrompt := prompts.NewStatusPrompt()
	s.AddPrompt(statusPrompt.Definition(), statusPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(registry)
	s.AddResource(resourceHandler.SessionsResource(), resourceHandler.HandleSessions)

	return s, cleanup, nil
}

// noop is a no-op cleanup function used when New fails early.
func noop() {}

func register(s *server.MCPServer, ts []tools.Tool) {
	for _, t := range ts {
		s.AddTool(t.Definition(), t.Handle)
	}
}

// registerWrappers adds the Slack, JIRA and Confluence tools whose
// credentials are configured.
func registerWrappers(s *server.MCPServer, cfg *config.AppConfig) {
	if cfg.SlackEnabled() {
		register(s, tools.Slack(slackclient.New(slackclient.Config{
			BotToken:          cfg.Slack.BotToken,
			UserToken:         cfg.Slack.UserToken,
			DigestChannels:    cfg.Slack.DigestChannels,
			DigestPostChannel: cfg.Slack.DigestPostChannel,
		})))
	} else {
		log.Warn().Msg("SLACK_BOT_TOKEN not set, Slack tools disabled")
	}

	if cfg.JiraEnabled() {
		jcfg := jira.Config{
			BaseURL:        cfg.Jira.URL,
			Email:          cfg.Jira.Email,
			Token:          cfg.Jira.Token,
			KnowledgeField: cfg.Jira.KnowledgeField,
			RequestDelay:   cfg.Jira.RequestDelay,
		}
		register(s, tools.Jira(jira.NewService(jira.NewClient(jcfg), jcfg, filepath.Join(cfg.AttachmentsDir, "jira"))))
	} else {
		log.Warn().Msg("JIRA_URL or JIRA_TOKEN not set, JIRA tools disabled")
	}

	if cfg.ConfluenceEnabled() {
		register(s, tools.Confluence(confluence.NewClient(confluence.Config{
			BaseURL: cfg.Confluence.URL,
			Email:   cfg.Confluence.Email,
			Token:   cfg.Confluence.Token,
		})))
	} else {
		log.Warn().Msg("CONFLUENCE_URL or CONFLUENCE_TOKEN not set, Confluence tools disabled")
	}
}

// registerMemoryTools registers the conversation memory tools.
func registerMemoryTools(s *server.MCPServer, ms *memory.Store) {
	// --- Save ---
	storeTool := memtools.NewStoreTool(ms)
	s.AddTool(storeTool.Definition(), storeTool.Handle)

	// --- Query & retrieval ---
	queryTool := memtools.NewQueryTool(ms)
	s.AddTool(queryTool.Definition(), queryTool.Handle)

	listTool := memtools.NewListTool(ms)
	s.AddTool(listTool.Definition(), listTool.Handle)

	getTool := memtools.NewGetTool(ms)
	s.AddTool(getTool.Definition(), getTool.Handle)

	// --- Management ---
	updateTool := memtools.NewUpdateTool(ms)
	s.AddTool(updateTool.Definition(), updateTool.Handle)

	deleteTool := memtools.NewDeleteTool(ms)
	s.AddTool(deleteTool.Definition(), deleteTool.Handle)

	clearTool := memtools.NewClearTool(ms)
	s.AddTool(clearTool.Definition(), clearTool.Handle)
}

// serverInstructions returns the system instructions that tell the AI
// how to use reasonkit effectively.
func serverInstructions() string {
	return `You have access to reasonkit, a set of structured reasoning workflows.

## HOW THE WORKFLOWS WORK

Every workflow is a session. Call the *_initialize tool (or sequential_thinking
without a session_id) to start one, keep the returned session_id, and pass it
to every later call.

Every response contains "phase" and "next_action". next_action is the exact
tool to call next, or "none (workflow complete)". When a call is rejected, the
error body carries a "code", the offending "field" and the "expected_actions"
that are legal in the current phase. Fix the call; never guess a different order.

## WHICH WORKFLOW TO USE

- planning_*: break a project into a Work Breakdown Structure, step by step.
  The WBS markdown file is rewritten after every step.
- wbs_execution_*: work through a finalized plan task by task, respecting
  dependencies.
- tot_*: explore alternatives as a tree, prune weak branches, select a path.
- sequential_thinking: a linear chain of thoughts with revisions and branches.
- recursive_thinking_*: improve one answer over cycles of latent reasoning
  updates followed by an answer rewrite.
- vs_*: verbalized sampling. Generate several low-probability samples with
  explicit probabilities to escape the most typical answer.
- cf_*: counterfactual analysis of something that already happened. After
  phase 2 the USER chooses which scenario type to analyse; pass their words
  as-is to cf_submit_selection.
- vibe_refinement_*: turn a vague prompt into a specific one through
  scored refinement rounds.

session_list shows every live session across workflows.

## MEMORY

When conversation memory is available, completed sessions are saved to it
automatically. Use conversation_memory_query before starting a workflow on a
topic that may have been covered before, and conversation_memory_store for
decisions worth keeping.

## EXTERNAL SERVICES

slack_*, jira_* and confluence_* tools are registered only when their
credentials are configured. They are thin wrappers: on a rate-limit error,
wait for the indicated time and retry.`
}
