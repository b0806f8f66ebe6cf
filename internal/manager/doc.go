// Package manager composes extensions into one runnable editor.
//
// New sorts the registered extensions by priority, merges their node and
// mark specs into a single schema, collects their plugins, key bindings,
// commands and helpers, and runs every OnCreate hook. NewView attaches a
// headless view and moves the manager to the runtime phase, after which
// each applied transaction is reported to every TransactionHook.
//
// Phases only move forward: None, Create, ViewAttach, Runtime, Destroy.
// Operations that need a live view return an *extension.PhaseError when
// called too early.
package manager
