// Package extension defines the contract every editor extension
// implements and the pieces shared by all of them: the embeddable Base
// with typed options, commands and helpers, the phase-scoped contexts
// handed to lifecycle hooks, and the Store shared through the manager.
//
// An extension is any value implementing Extension. What it contributes is
// discovered through optional capability interfaces: NodeSpecProvider,
// MarkSpecProvider, CommandProvider, HelperProvider, KeymapProvider,
// PluginProvider, ExternalPluginProvider and the lifecycle hooks
// CreateHook, ViewHook, TransactionHook and DestroyHook.
//
// Kind is carried by value on every extension, so node and mark
// extensions are told apart without type assertions on concrete types.
package extension
