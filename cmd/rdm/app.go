package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/redmine-cli/rdm/internal/apperrors"
	"github.com/redmine-cli/rdm/internal/cache"
	"github.com/redmine-cli/rdm/internal/cli/output"
	"github.com/redmine-cli/rdm/internal/config"
	"github.com/redmine-cli/rdm/internal/logs"
	"github.com/redmine-cli/rdm/internal/observability"
	"github.com/redmine-cli/rdm/internal/redmine"
	"github.com/redmine-cli/rdm/internal/resolver"
)

// app bundles the per-invocation runtime: resolved configuration, the
// API client, and the cache/resolver stack built on top of it.
type app struct {
	cfg      *config.Resolved
	logger   *zap.Logger
	client   *redmine.Client
	cache    *cache.Manager
	resolver *resolver.Resolver
	tracing  *observability.TracingManager
}

// newApp resolves configuration and wires the full client stack.
// Commands that only touch local state (profiles, config show) skip
// this and load what they need directly.
func newApp() (*app, error) {
	logger, err := logs.SetupCommandLogger(logLevel, logToFile, logDir)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logger: %w", err)
	}

	cfg, err := config.Resolve(config.Overrides{
		URL:     serverURL,
		APIKey:  apiKey,
		Profile: profileName,
	})
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	logs.RegisterSecret(cfg.APIKey)

	sugar := logger.Sugar()
	client := redmine.New(redmine.Config{
		URL:       cfg.URL,
		APIKey:    cfg.APIKey,
		Timeout:   cfg.Timeout,
		UserAgent: "rdm/" + version,
	}, sugar)

	tracing := observability.NewDisabled()
	if cfg.Tracing.Enabled {
		tm, err := observability.NewTracingManager(sugar, observability.TracingConfig{
			Enabled:        true,
			ServiceName:    "rdm",
			ServiceVersion: version,
			OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
			SampleRate:     cfg.Tracing.SampleRate,
		})
		if err != nil {
			logger.Warn("Tracing setup failed, continuing without it", zap.Error(err))
		} else {
			tracing = tm
		}
	}
	client.SetTracing(tracing)

	activityCache := cache.NewManager(cfg.CacheDir, client.ListActivities, sugar)
	activityCache.SetTracing(tracing)

	return &app{
		cfg:      cfg,
		logger:   logger,
		client:   client,
		cache:    activityCache,
		resolver: resolver.New(client, activityCache, cfg.Identity, sugar),
		tracing:  tracing,
	}, nil
}

// Close flushes the logger and shuts tracing down.
func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = a.tracing.Close(ctx)
	_ = a.logger.Sync()
}

// commandContext bounds one command with the configured timeout.
func (a *app) commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), a.cfg.Timeout)
}

// ResolveOutputFormat returns the effective output format for this
// invocation: --output beats --json beats RDM_OUTPUT beats the table
// default.
func ResolveOutputFormat() string {
	return output.ResolveFormat(outputFlag, jsonOutput)
}

// GetOutputFormatter builds the formatter for the effective format.
func GetOutputFormatter() (output.OutputFormatter, error) {
	return output.NewFormatter(ResolveOutputFormat())
}

// printPayload writes a formatter result to stdout with exactly one
// trailing newline (JSON output carries none, YAML already ends with
// one).
func printPayload(s string) {
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	fmt.Print(s)
}

// renderPage prints one window of list results: structured formats get
// the envelope with paging metadata, table mode gets rows plus a
// footer line.
func renderPage(data interface{}, meta *output.Meta, headers []string, rows [][]string) error {
	format := ResolveOutputFormat()
	formatter, err := output.NewFormatter(format)
	if err != nil {
		return err
	}

	if format == "json" || format == "yaml" {
		result, err := formatter.Format(output.Page(data, meta))
		if err != nil {
			return err
		}
		printPayload(result)
		return nil
	}

	table, err := formatter.FormatTable(headers, rows)
	if err != nil {
		return err
	}
	fmt.Print(table)
	if footer := meta.Footer(); footer != "" {
		fmt.Print("\n" + footer)
	}
	return nil
}

// renderDetail prints one record: structured formats get the success
// envelope, table mode the prebuilt field listing.
func renderDetail(data interface{}, table string) error {
	format := ResolveOutputFormat()
	formatter, err := output.NewFormatter(format)
	if err != nil {
		return err
	}

	if format == "json" || format == "yaml" {
		result, err := formatter.Format(data)
		if err != nil {
			return err
		}
		printPayload(result)
		return nil
	}

	fmt.Print(table)
	return nil
}

// renderMessage prints a mutation result: structured formats get the
// envelope, table mode a one-line confirmation.
func renderMessage(data interface{}, format string, args ...interface{}) error {
	outputFormat := ResolveOutputFormat()
	formatter, err := output.NewFormatter(outputFormat)
	if err != nil {
		return err
	}

	if outputFormat == "json" || outputFormat == "yaml" {
		result, err := formatter.Format(data)
		if err != nil {
			return err
		}
		printPayload(result)
		return nil
	}

	fmt.Printf(format+"\n", args...)
	return nil
}

// dryRunPlan is the request that a mutating command would have sent.
type dryRunPlan struct {
	DryRun bool        `json:"dry_run" yaml:"dry_run"`
	Method string      `json:"method" yaml:"method"`
	Path   string      `json:"path" yaml:"path"`
	Body   interface{} `json:"body,omitempty" yaml:"body,omitempty"`
}

// renderDryRun shows the request without sending it.
func renderDryRun(method, path string, body interface{}) error {
	format := ResolveOutputFormat()
	formatter, err := output.NewFormatter(format)
	if err != nil {
		return err
	}

	if format == "json" || format == "yaml" {
		result, err := formatter.Format(dryRunPlan{DryRun: true, Method: method, Path: path, Body: body})
		if err != nil {
			return err
		}
		printPayload(result)
		return nil
	}

	fmt.Printf("Dry run: %s %s\n", method, path)
	if body != nil {
		encoded, err := json.MarshalIndent(body, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(encoded))
	}
	return nil
}

// fieldList accumulates the aligned label/value lines used by
// 'get'-style commands in table mode. Empty values are skipped.
type fieldList struct {
	b strings.Builder
}

func (f *fieldList) add(label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(&f.b, "%-14s %s\n", label+":", value)
}

func (f *fieldList) addf(label, format string, args ...interface{}) {
	f.add(label, fmt.Sprintf(format, args...))
}

func (f *fieldList) String() string {
	return f.b.String()
}

// parseID parses a positional numeric ID argument.
func parseID(arg, what string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || id <= 0 {
		return 0, apperrors.New(apperrors.Validation, "invalid %s ID %q: expected a positive number", what, arg)
	}
	return id, nil
}

// resolveProjectID turns a project token (numeric ID or identifier)
// into the numeric ID, asking the server when needed.
func resolveProjectID(ctx context.Context, a *app, token string) (int, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, apperrors.New(apperrors.Validation, "project must not be empty")
	}
	if id, err := strconv.Atoi(token); err == nil {
		if id <= 0 {
			return 0, apperrors.New(apperrors.Validation, "invalid project ID %d", id)
		}
		return id, nil
	}
	project, err := a.client.GetProject(ctx, token)
	if err != nil {
		return 0, err
	}
	return project.ID, nil
}

// customFieldParams converts resolved filter pairs into the write
// payload shape.
func customFieldParams(filters []redmine.CustomFieldFilter) []redmine.CustomFieldParam {
	if len(filters) == 0 {
		return nil
	}
	params := make([]redmine.CustomFieldParam, 0, len(filters))
	for _, f := range filters {
		params = append(params, redmine.CustomFieldParam{ID: f.ID, Value: f.Value})
	}
	return params
}

// formatHours renders an hour count without trailing zeros.
func formatHours(hours float64) string {
	return strconv.FormatFloat(hours, 'f', -1, 64)
}

// validateDateFlag checks a YYYY-MM-DD flag value.
func validateDateFlag(flag, value string) error {
	if value == "" {
		return nil
	}
	if _, err := time.Parse("2006-01-02", value); err != nil {
		return apperrors.New(apperrors.Validation, "invalid --%s value %q: expected YYYY-MM-DD", flag, value)
	}
	return nil
}
