// Package execution composes one function invocation: the bundle, the
// request descriptor, the offset ledger and the resolved input/output
// strategies. One OS process runs exactly one Context; nothing here is
// shared across invocations.
package execution

import (
	"fmt"
	"log/slog"

	"github.com/tabsdata-labs/tabsdata-go/internal/bundle"
	"github.com/tabsdata-labs/tabsdata-go/internal/offset"
	"github.com/tabsdata-labs/tabsdata-go/internal/request"
	"github.com/tabsdata-labs/tabsdata-go/internal/source"
	"github.com/tabsdata-labs/tabsdata-go/internal/storage"
)

// The plugin-role key under which bundle descriptors register source and
// destination plugin files.
const pluginRole = "plugin"

// Context exclusively owns the per-invocation state. Source, destination,
// ledger and function resolve lazily and at most once.
type Context struct {
	logger *slog.Logger
	paths  bundle.ExecutionPaths
	config *bundle.FunctionConfig
	req    *request.Invocation
	store  *storage.Resolver

	src    source.Source
	dst    source.Destination
	ledger *offset.Ledger
	fn     Function
}

func NewContext(logger *slog.Logger, paths bundle.ExecutionPaths, config *bundle.FunctionConfig, req *request.Invocation, store *storage.Resolver) *Context {
	return &Context{
		logger: logger,
		paths:  paths,
		config: config,
		req:    req,
		store:  store,
	}
}

func (c *Context) Request() *request.Invocation {
	return c.req
}

func (c *Context) Paths() bundle.ExecutionPaths {
	return c.paths
}

func (c *Context) deps() source.Deps {
	return source.Deps{
		Logger:        c.logger,
		Store:         c.store,
		PluginsFolder: c.paths.PluginsFolder(),
		WorkFolder:    c.paths.OutputFolder,
	}
}

// Source resolves the declared input strategy. A plugin-kind source whose
// plugin cannot be named is fatal: inputs always require something
// runnable.
func (c *Context) Source() (source.Source, error) {
	if c.src != nil {
		return c.src, nil
	}
	spec := c.config.Source
	if spec.Kind == source.KindPlugin {
		file := c.pluginFile(c.config.InputPlugins(), spec.Plugin)
		if file == "" {
			return nil, source.ErrSourcePluginNotFound
		}
		spec.Plugin = &source.PluginSpec{File: file}
	}
	resolved, err := source.NewSource(spec, c.deps())
	if err != nil {
		return nil, err
	}
	c.src = resolved
	return c.src, nil
}

// Destination resolves the declared output strategy. A plugin-kind
// destination without a nameable plugin falls back to declarative table
// writes; outputs may be declarative-only.
func (c *Context) Destination() (source.Destination, error) {
	if c.dst != nil {
		return c.dst, nil
	}
	spec := c.config.Destination
	if spec.Kind == source.KindPlugin {
		file := c.pluginFile(c.config.OutputPlugins(), spec.Plugin)
		if file == "" {
			c.logger.Warn("no destination plugin registered, using declarative table writes")
			spec = source.DestinationSpec{Kind: source.KindTable, Tables: spec.Tables}
		} else {
			spec.Plugin = &source.PluginSpec{File: file}
		}
	}
	resolved, err := source.NewDestination(spec, c.deps())
	if err != nil {
		return nil, err
	}
	c.dst = resolved
	return c.dst, nil
}

func (c *Context) pluginFile(registered map[string]string, declared *source.PluginSpec) string {
	if file, ok := registered[pluginRole]; ok && file != "" {
		return file
	}
	if declared != nil {
		return declared.File
	}
	return ""
}

// Ledger builds the offset ledger on first access, seeded with the
// source's declared initial values.
func (c *Context) Ledger() (*offset.Ledger, error) {
	if c.ledger != nil {
		return c.ledger, nil
	}
	src, err := c.Source()
	if err != nil {
		return nil, err
	}
	c.ledger = offset.NewLedger(c.logger, c.store, src.ReturnsOffsetValues(), c.decoratorValues())
	return c.ledger, nil
}

func (c *Context) decoratorValues() map[string]string {
	if sqlSpec := c.config.Source.SQL; sqlSpec != nil && sqlSpec.InitialValue != "" {
		return map[string]string{sqlSpec.OffsetKey: sqlSpec.InitialValue}
	}
	return nil
}

// SetFunction overrides function resolution, used by tests and embedded
// callers.
func (c *Context) SetFunction(fn Function) {
	c.fn = fn
}

// Function resolves the bundled entry point on first access.
func (c *Context) Function() (Function, error) {
	if c.fn != nil {
		return c.fn, nil
	}
	file, err := c.paths.FunctionFile(c.config)
	if err != nil {
		return nil, fmt.Errorf("resolve user function: %w", err)
	}
	c.fn = newSubprocessFunction(c.logger, file, c.config.EntryPoint.Function, c.paths.OutputFolder)
	return c.fn, nil
}
